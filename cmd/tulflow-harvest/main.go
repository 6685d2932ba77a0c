// Command tulflow-harvest runs one harvest pipeline from a YAML profile and prints the totals.
// It is meant to be invoked as a single orchestrator task
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tulflow/internal/modkit"
	"tulflow/internal/modkit/module"
	"tulflow/internal/platform/config"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store"
	"tulflow/internal/platform/store/blob"
	"tulflow/internal/services/harvest/domain"
	harvestmod "tulflow/internal/services/harvest/module"
	"tulflow/internal/services/harvest/repo"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() { os.Exit(run()) }

// run returns the process exit code: 0 ok, 1 failed, 2 finished with failed sets
func run() int {
	var (
		fProfile   = flag.String("profile", "", "path to the pipeline profile (YAML)")
		fDagID     = flag.String("dag-id", "", "run identifier stamped on batches, overrides the profile")
		fTimestamp = flag.String("timestamp", "", "run timestamp stamped on batches, overrides the profile")
		fWriter    = flag.String("writer", "", "batch writer: s3 | log (default CORE_HARVEST_WRITER)")
		fMigrate   = flag.Bool("migrate", false, "create the ledger and audit tables before running")
		fEnv       = flag.String("env", ".env", "dotenv file loaded before reading config")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*fEnv); err != nil {
		logger.Get().Panic().Err(err).Str("path", *fEnv).Msg("load dotenv")
	}
	l := logger.Get()
	if *fProfile == "" {
		l.Panic().Msg("must provide -profile")
	}
	mustSetEnv("CORE_HARVEST_WRITER", *fWriter)

	p, err := harvestmod.LoadProfile(*fProfile)
	if err != nil {
		l.Panic().Err(err).Str("profile", *fProfile).Msg("bad profile")
	}
	if *fDagID != "" {
		p.Batch.DagID = *fDagID
	}
	if *fTimestamp != "" {
		p.Batch.Timestamp = *fTimestamp
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "tulflow", "harvest"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if *fMigrate {
		migrate(ctx, l, st)
	}

	svc, err := harvestmod.NewService(modkit.FromStore(root, st), harvestmod.FromConfig(root))
	if err != nil {
		l.Error().Err(err).Msg("harvest wiring failed")
		return 1
	}
	hm := harvestmod.New(modkit.Deps{}, modkit.WithPorts(harvestmod.Ports{Runner: svc, Query: svc}))
	module.Register(hm.Name(), hm.Ports())
	runner := module.MustPortsOf[harvestmod.Ports](hm).Runner

	res, err := runner.Run(ctx, p)
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	_ = out.Encode(res)

	var pe *domain.PartialError
	switch {
	case errors.As(err, &pe):
		l.Error().Err(err).Int("failed_sets", len(pe.Failed)).Msg("harvest finished with failed sets")
		return 2
	case err != nil:
		l.Error().Err(err).Str("profile", p.Profile).Msg("harvest failed")
		return 1
	}
	return 0
}

// migrate creates whatever the configured backends need
func migrate(ctx context.Context, l *logger.Logger, st *store.Store) {
	if st.PG != nil {
		if err := repo.EnsureSchema(ctx, st.PG); err != nil {
			l.Panic().Err(err).Msg("ledger schema")
		}
	}
	if st.CH != nil {
		if err := repo.EnsureAuditSchema(ctx, st.CH); err != nil {
			l.Panic().Err(err).Msg("audit schema")
		}
	}
	if s3, ok := st.Blob.(*blob.S3); ok && st.BlobBucket != "" {
		if err := s3.EnsureBucket(ctx, st.BlobBucket); err != nil {
			l.Panic().Err(err).Msg("ensure bucket")
		}
	}
	l.Info().Msg("migrations applied")
}
