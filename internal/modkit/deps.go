// Package modkit provides module wiring and core deps
package modkit

import (
	"tulflow/internal/modkit/repokit"
	"tulflow/internal/platform/config"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store"
	"tulflow/internal/platform/store/blob"
)

// Deps holds core dependencies passed to modules
// PG, CH and Blob are optional; modules nil check them and fall back
type Deps struct {
	Log    *logger.Logger
	Cfg    config.Conf
	PG     repokit.TxRunner
	CH     store.Clickhouse
	Blob   blob.Store
	Bucket string
}

// FromStore copies the opened backends of st into a Deps
func FromStore(cfg config.Conf, st *store.Store) Deps {
	d := Deps{Cfg: cfg, Log: logger.Get()}
	if st == nil {
		return d
	}
	if st.PG != nil {
		d.PG = st.PG
	}
	if st.CH != nil {
		d.CH = st.CH
	}
	d.Blob = st.Blob
	d.Bucket = st.BlobBucket
	return d
}
