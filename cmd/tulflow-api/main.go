// @title         tulflow API
// @version       0.1.0
// @description   Trigger OAI-PMH harvests and read the run ledger

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tulflow/internal/platform/config"
	"tulflow/internal/platform/logger"
	phttp "tulflow/internal/platform/net/http"
	"tulflow/internal/platform/store"
	"tulflow/internal/services/api"
	"tulflow/internal/services/harvest/repo"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load dotenv")
	}

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.ConfigFromEnv(root, "tulflow", "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if st.PG != nil && apiCfg.MayBool("MIGRATE", true) {
		if err := repo.EnsureSchema(ctx, st.PG); err != nil {
			l.Panic().Err(err).Msg("ledger schema")
		}
	}

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Router(), api.Options{
		Config:        root,
		Store:         st,
		Logger:        l,
		EnableSwagger: apiCfg.MayBool("SWAGGER", true),
	})

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
