package module

import (
	"time"

	"tulflow/internal/platform/config"
	"tulflow/internal/platform/net/http/bind"
)

// Writer kinds
const (
	WriterS3  = "s3"
	WriterLog = "log"
)

// Options holds configuration options for the harvest module
type Options struct {
	Writer string `validate:"oneof=s3 log"`
	Bucket string

	Audit        bool
	Ledger       bool
	EnableLeases bool

	RunTimeout time.Duration `validate:"min=0"`
	SetTimeout time.Duration `validate:"min=0"`
	DBTimeout  time.Duration `validate:"min=0"`
}

// FromConfig reads the harvest options from config with CORE_HARVEST_ prefix
func FromConfig(cfg config.Conf) Options {
	hc := cfg.Prefix("CORE_HARVEST_")
	return Options{
		Writer:       hc.MayEnum("WRITER", WriterS3, WriterS3, WriterLog),
		Bucket:       hc.MayString("BUCKET", ""),
		Audit:        hc.MayBool("AUDIT", true),
		Ledger:       hc.MayBool("LEDGER", true),
		EnableLeases: hc.MayBool("LEASES", true),
		RunTimeout:   hc.MayDuration("RUN_TIMEOUT", 0),
		SetTimeout:   hc.MayDuration("SET_TIMEOUT", 0),
		DBTimeout:    hc.MayDuration("DB_TIMEOUT", 10*time.Second),
	}
}

// Validate checks the options with the shared validator
func (o Options) Validate() error { return bind.Validate(o) }
