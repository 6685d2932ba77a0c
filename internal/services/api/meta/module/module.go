// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"context"
	"net/http"
	"time"

	"tulflow/internal/modkit"
	"tulflow/internal/modkit/httpkit"
	"tulflow/internal/platform/store"
	metahttp "tulflow/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	deps   metahttp.Deps
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		deps: metahttp.Deps{
			ServiceName: "tulflow-api",
			StartedAt:   time.Now(),
			Checks:      checks(deps),
		},
	}
}

// checks lists the configured backends; unconfigured ones stay nil so they report skipped
func checks(deps modkit.Deps) []metahttp.Check {
	out := []metahttp.Check{{Name: "pg"}, {Name: "ch"}, {Name: "blob"}}
	if p, ok := deps.PG.(store.Pinger); ok && deps.PG != nil {
		out[0].Pinger = p
	}
	if p, ok := deps.CH.(store.Pinger); ok && deps.CH != nil {
		out[1].Pinger = p
	}
	if deps.Blob != nil {
		bucket := deps.Bucket
		out[2].Pinger = metahttp.PingFunc(func(ctx context.Context) error { return deps.Blob.Ping(ctx, bucket) })
	}
	return out
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		metahttp.Register(rr, m.deps)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.name }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return m.prefix }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
