// Command tulflow-almasftp expands an Alma SFTP tarball in the object store and writes the
// namespaced MARC collection next to it, ready for the transform tasks
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tulflow/internal/adapters/almasftp"
	"tulflow/internal/platform/config"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store"
)

func main() { os.Exit(run()) }

func run() int {
	var (
		fKey    = flag.String("key", "", "tarball key in the bucket")
		fDest   = flag.String("dest", "", "destination key (default: key without .tar.gz)")
		fBucket = flag.String("bucket", "", "bucket (default SERVICE_S3_BUCKET)")
		fEnv    = flag.String("env", ".env", "dotenv file loaded before reading config")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*fEnv); err != nil {
		logger.Get().Panic().Err(err).Str("path", *fEnv).Msg("load dotenv")
	}
	l := logger.Get()
	if *fKey == "" {
		l.Panic().Msg("must provide -key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := store.ConfigFromEnv(config.New(), "tulflow", "almasftp")
	cfg.PG.Enabled, cfg.CH.Enabled = false, false
	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if st.Blob == nil {
		l.Error().Msg("no object store configured, set SERVICE_S3_ENDPOINT")
		return 1
	}

	bucket := *fBucket
	if bucket == "" {
		bucket = st.BlobBucket
	}
	dest, err := almasftp.Publish(ctx, st.Blob, bucket, *fKey, *fDest)
	if err != nil {
		l.Error().Err(err).Str("key", *fKey).Msg("expand failed")
		return 1
	}
	fmt.Println(dest)
	return 0
}
