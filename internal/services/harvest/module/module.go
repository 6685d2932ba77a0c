// Package module wires the harvest pipeline, its ledger and its routes using modkit
package module

import (
	"context"
	"net/http"

	"tulflow/internal/adapters/lookup"
	"tulflow/internal/modkit"
	"tulflow/internal/modkit/httpkit"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/services/harvest/domain"
	"tulflow/internal/services/harvest/enrich"
	"tulflow/internal/services/harvest/guardrails"
	harvesthttp "tulflow/internal/services/harvest/http"
	"tulflow/internal/services/harvest/ingest"
	"tulflow/internal/services/harvest/repo"
	"tulflow/internal/services/harvest/service"
	"tulflow/internal/services/harvest/writer"
)

// Ports defines the harvest module ports
type Ports struct {
	Runner domain.RunnerPort
	Query  domain.QueryPort
}

// Module implements the harvest module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	ports  Ports
}

// New constructs the harvest module from deps and CORE_HARVEST_* config.
// Ports passed with modkit.WithPorts replace the wired service (tests, dry runs)
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("harvest"), modkit.WithPrefix("/harvests")}, opts...)...)

	m := &Module{deps: deps, name: b.Name, prefix: b.Prefix, mws: b.Mw}
	if p, ok := b.Ports.(Ports); ok {
		m.ports = p
		return m
	}

	svc, err := NewService(deps, FromConfig(deps.Cfg))
	if err != nil {
		panic(err)
	}
	m.ports = Ports{Runner: svc, Query: svc}
	return m
}

// NewService builds the harvest service with every adapter o asks for.
// The s3 writer needs an object store; batches only go to the log when o.Writer is log
func NewService(deps modkit.Deps, o Options) (*service.Service, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	w, err := newWriter(deps, o)
	if err != nil {
		return nil, err
	}

	client := ingest.NewClient(deps.Cfg)
	svc := service.New(
		ingest.NewSource(client),
		ingest.NewCatalog(client),
		w,
		service.Config{
			Timeouts: guardrails.Timeouts{
				Run: o.RunTimeout,
				Set: o.SetTimeout,
				DB:  o.DBTimeout,
			},
			EnableLeases: o.EnableLeases,
		},
	)
	if deps.PG != nil {
		if o.Ledger {
			svc.WithLedger(deps.PG, repo.NewPG())
		}
		svc.WithLease(guardrails.MakeAdvisoryLease(deps.PG))
	}
	svc.WithEnrich(enrichFactory(deps, o))
	return svc, nil
}

// newWriter picks the batch writer
func newWriter(deps modkit.Deps, o Options) (domain.BatchWriter, error) {
	var w domain.BatchWriter
	switch o.Writer {
	case WriterS3:
		if deps.Blob == nil {
			return nil, perr.Newf(perr.ErrorCodeUnavailable, "writer s3 needs an object store; configure SERVICE_S3_ENDPOINT or set CORE_HARVEST_WRITER=log")
		}
		bucket := o.Bucket
		if bucket == "" {
			bucket = deps.Bucket
		}
		if bucket == "" {
			return nil, perr.Newf(perr.ErrorCodeUnavailable, "writer s3 needs a bucket; set CORE_HARVEST_BUCKET or SERVICE_S3_BUCKET")
		}
		w = writer.Object{Store: deps.Blob, Bucket: bucket}
	default:
		w = writer.Log{Log: logger.Named("writer")}
	}
	if o.Audit && deps.CH != nil {
		w = writer.Audited{Next: w, CH: deps.CH}
	}
	return w, nil
}

// enrichFactory loads the pipeline's lookup table once per run
func enrichFactory(deps modkit.Deps, o Options) service.TransformFactory {
	return func(ctx context.Context, p domain.Pipeline) (domain.Transform, error) {
		lc := p.Lookup
		if !lc.Enabled() {
			return nil, nil
		}
		var (
			t   *lookup.Table
			err error
		)
		if lc.Key != "" {
			if deps.Blob == nil {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "lookup %s needs an object store", lc.Key)
			}
			bucket := lc.Bucket
			if bucket == "" {
				bucket = o.Bucket
			}
			if bucket == "" {
				bucket = deps.Bucket
			}
			t, err = lookup.LoadBlob(ctx, deps.Blob, bucket, lc.Key)
		} else {
			t, err = lookup.LoadFile(lc.Path)
		}
		if err != nil {
			return nil, err
		}
		return enrich.New(t, lc.BoundwithParentField).Transform(), nil
	}
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// MountRoutes mounts the harvest endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		harvesthttp.Register(rr, m.ports.Runner, m.ports.Query)
	})
}
