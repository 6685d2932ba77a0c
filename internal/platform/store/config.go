package store

import (
	"time"

	"tulflow/internal/platform/store/blob"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG   PGConfig
	CH   CHConfig
	Blob blob.Config
}

// PGConfig configures the run ledger database
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures the audit database
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientName string
	ClientTag  string
}
