// Package service provides the harvest pipeline: set resolution, per set classify and batch,
// and the run ledger around it
package service

import (
	"context"
	"errors"
	"time"

	"tulflow/internal/core/marcxml"
	"tulflow/internal/modkit/repokit"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/net/http/bind"
	ptime "tulflow/internal/platform/time"
	"tulflow/internal/services/harvest/domain"
	"tulflow/internal/services/harvest/guardrails"
	"tulflow/internal/services/harvest/writer"

	"github.com/google/uuid"
)

// Config holds configuration options for the harvest service
type Config struct {
	// Timeouts applied via guardrails
	Timeouts guardrails.Timeouts

	// EnableLeases takes the profile lease around each run when a Lease is wired
	EnableLeases bool
}

// TransformFactory builds the per run transform for a pipeline, nil when none applies
type TransformFactory func(ctx context.Context, p domain.Pipeline) (domain.Transform, error)

// Service implements domain.RunnerPort and domain.QueryPort
type Service struct {
	Source domain.RecordSource
	Sets   SetEnumerator
	Writer domain.BatchWriter
	Cfg    Config
	Enrich TransformFactory
	Lease  guardrails.Lease
	Now    func() time.Time
	NewID  func() string

	DB     repokit.TxRunner                  // nil disables the ledger
	Binder repokit.Binder[domain.LedgerRepo] // binds q -> domain.LedgerRepo
}

var (
	_ domain.RunnerPort = (*Service)(nil)
	_ domain.QueryPort  = (*Service)(nil)
)

// New constructs the harvest service
func New(
	src domain.RecordSource,
	catalog domain.SetCatalog,
	w domain.BatchWriter,
	cfg Config,
) *Service {
	if src == nil {
		panic("harvest.Service requires a non nil RecordSource")
	}
	if w == nil {
		panic("harvest.Service requires a non nil BatchWriter")
	}
	return &Service{
		Source: src,
		Sets:   SetEnumerator{Catalog: catalog},
		Writer: w,
		Cfg:    cfg,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// WithLedger wires the Postgres run ledger
func (s *Service) WithLedger(db repokit.TxRunner, b repokit.Binder[domain.LedgerRepo]) *Service {
	s.DB, s.Binder = db, b
	return s
}

// WithLease wires the profile lease used when Cfg.EnableLeases is set
func (s *Service) WithLease(l guardrails.Lease) *Service {
	s.Lease = l
	return s
}

// WithEnrich wires the lookup transform factory
func (s *Service) WithEnrich(f TransformFactory) *Service {
	s.Enrich = f
	return s
}

func (s *Service) ledger() bool { return s.DB != nil && s.Binder != nil }

// Run executes one pipeline. Sets are harvested one at a time in resolution order; with no
// sets the feed is harvested once unpartitioned. The returned totals are the sum over sets
func (s *Service) Run(ctx context.Context, p domain.Pipeline) (domain.Result, error) {
	if err := bind.Validate(p); err != nil {
		return domain.Result{}, err
	}
	if s.Lease != nil && s.Cfg.EnableLeases {
		var res domain.Result
		err := s.Lease(ctx, p.Profile, func(ctx context.Context) error {
			var err error
			res, err = s.run(ctx, p)
			return err
		})
		if errors.Is(err, guardrails.ErrLeaseHeld) {
			return domain.Result{}, perr.Wrapf(err, perr.ErrorCodeConflict, "profile %s is already running", p.Profile)
		}
		return res, err
	}
	return s.run(ctx, p)
}

func (s *Service) run(ctx context.Context, p domain.Pipeline) (res domain.Result, retErr error) {
	ctx, cancel := guardrails.WithRun(ctx, s.Cfg.Timeouts)
	defer cancel()

	res.RunID = s.NewID()
	ctx = logger.WithRun(ctx, res.RunID, "")
	log := logger.C(ctx)

	win, err := s.window(ctx, p)
	if err != nil {
		return res, err
	}
	res.Window = win

	batch := p.Batch
	if batch.DagID == "" {
		batch.DagID = marcxml.NoDagID
	}
	if batch.Timestamp == "" {
		batch.Timestamp = marcxml.NoTimestamp
	}
	if s.Enrich != nil && batch.Transform == nil {
		tr, err := s.Enrich(ctx, p)
		if err != nil {
			return res, err
		}
		batch.Transform = tr
	}
	prefix := writer.Prefix(batch.DagID, batch.Timestamp)

	started := s.Now()
	s.tx(ctx, func(r domain.LedgerRepo) error {
		return r.StartRun(ctx, domain.Run{
			ID: res.RunID, Profile: p.Profile, DagID: batch.DagID, Timestamp: batch.Timestamp,
			Window: win, Status: domain.StatusRunning, StartedAt: started,
		})
	})
	defer func() {
		status := domain.StatusOK
		var pe *domain.PartialError
		switch {
		case errors.As(retErr, &pe):
			status = domain.StatusPartial
		case retErr != nil:
			status = domain.StatusError
		}
		run := domain.Run{ID: res.RunID, Profile: p.Profile, Status: status, Counts: res.RunCounts, FinishedAt: ptime.Ptr(s.Now())}
		if retErr != nil {
			run.Error = retErr.Error()
		}
		s.tx(ctx, func(r domain.LedgerRepo) error { return r.FinishRun(ctx, run) })
	}()

	sets, err := s.Sets.Resolve(ctx, p.Endpoint, p.Sets)
	if err != nil {
		log.Error().Err(err).Msg("set resolution failed")
		return res, err
	}
	if len(sets) == 0 {
		sets = []string{""}
	}

	var failed []domain.SetResult
	for _, set := range sets {
		sr := s.harvestSet(ctx, p, win, set, prefix, batch)
		res.Sets = append(res.Sets, sr)
		res.RunCounts = res.RunCounts.Add(sr.Counts)
		if sr.Err == nil {
			continue
		}
		if p.EffectivePolicy() == domain.PolicyFailFast {
			return res, sr.Err
		}
		failed = append(failed, sr)
	}

	log.Info().
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("sets", len(res.Sets)).
		Msg("harvest complete")

	if len(failed) > 0 {
		return res, &domain.PartialError{Failed: failed}
	}
	if p.Incremental && AdvanceMarker(res.RunCounts) {
		from, _ := ptime.ParseOAI(win.From)
		until, _ := ptime.ParseOAI(win.Until)
		s.tx(ctx, func(r domain.LedgerRepo) error {
			return r.SaveMarker(ctx, domain.Marker{Profile: p.Profile, LastFrom: from, LastUntil: until, Counts: res.RunCounts})
		})
	} else if p.Incremental {
		log.Info().Msg("no updated records, the window will be revisited next run")
	}
	return res, nil
}

// harvestSet runs the source and the batcher for one set and records the outcome
func (s *Service) harvestSet(ctx context.Context, p domain.Pipeline, win domain.Window, set, prefix string, batch domain.BatchConfig) domain.SetResult {
	runID := logger.RunID(ctx)
	ctx = logger.WithRun(ctx, runID, set)
	ctx, cancel := guardrails.ForSet(ctx, s.Cfg.Timeouts)
	defer cancel()

	it := s.Source.Records(ctx, domain.HarvestRequest{
		Endpoint:       p.Endpoint,
		MetadataPrefix: p.MetadataPrefix,
		Set:            set,
		From:           win.From,
		Until:          win.Until,
	})
	counts, err := Process(ctx, it, s.Writer, prefix, batch)

	row := domain.SetRow{Set: set, Status: domain.StatusOK, Counts: counts}
	if err != nil {
		row.Status, row.Error = domain.StatusError, err.Error()
		logger.C(ctx).Error().Err(err).Msg("set failed")
	}
	s.tx(ctx, func(r domain.LedgerRepo) error { return r.FinishSet(ctx, runID, row) })
	return domain.SetResult{Set: set, Counts: counts, Err: err}
}

// window picks the date range: the pipeline's own bounds, or the incremental window
// derived from the stored marker
func (s *Service) window(ctx context.Context, p domain.Pipeline) (domain.Window, error) {
	if !p.Incremental {
		return domain.Window{From: p.From, Until: p.Until}, nil
	}
	now := s.Now()
	if !s.ledger() {
		return domain.Window{}, perr.InvalidArgf("incremental harvest of %s needs the run ledger", p.Profile)
	}
	var (
		m     domain.Marker
		found bool
	)
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		m, found, err = s.Binder.Bind(q).Marker(ctx, p.Profile)
		return err
	})
	if err != nil {
		return domain.Window{}, err
	}
	if !found {
		// first run: bounded by the configured from, if any
		return domain.Window{From: p.From, Until: ptime.FormatOAI(now)}, nil
	}
	return IncrementalWindow(m.LastUntil, p.Interval(), now), nil
}

// tx runs a best effort ledger write; failures are logged, never returned
func (s *Service) tx(ctx context.Context, fn func(domain.LedgerRepo) error) {
	if !s.ledger() {
		return
	}
	dbCtx, cancel := guardrails.ForDB(context.WithoutCancel(ctx), s.Cfg.Timeouts)
	defer cancel()
	if err := s.DB.Tx(dbCtx, func(q repokit.Queryer) error { return fn(s.Binder.Bind(q)) }); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("ledger write failed")
	}
}

// ListRuns implements domain.QueryPort
func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, int, error) {
	if !s.ledger() {
		return nil, 0, perr.Unavailablef("run ledger is not configured")
	}
	var (
		runs  []domain.Run
		total int
	)
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		runs, total, err = s.Binder.Bind(q).ListRuns(ctx, limit, offset)
		return err
	})
	return runs, total, err
}

// GetRun implements domain.QueryPort
func (s *Service) GetRun(ctx context.Context, id string) (domain.Run, error) {
	if !s.ledger() {
		return domain.Run{}, perr.Unavailablef("run ledger is not configured")
	}
	var run domain.Run
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		run, err = s.Binder.Bind(q).GetRun(ctx, id)
		return err
	})
	return run, err
}
