package store

import (
	"tulflow/internal/platform/config"
	"tulflow/internal/platform/store/blob"
)

// ConfigFromEnv reads SERVICE_PGSQL_*, SERVICE_CLICKHOUSE_* and SERVICE_S3_*.
// A backend is enabled when its address is set
func ConfigFromEnv(root config.Conf, app, tag string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")
	s3 := root.Prefix("SERVICE_S3_")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        pg.Has("DBURL"),
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 0),
		},
		CH: CHConfig{
			Enabled:    ch.Has("DBURL"),
			URL:        ch.MayString("DBURL", ""),
			ClientName: app,
			ClientTag:  tag,
		},
		Blob: blob.Config{
			Enabled:   s3.Has("ENDPOINT"),
			Endpoint:  s3.MayString("ENDPOINT", ""),
			AccessKey: s3.MayString("ACCESS_KEY", ""),
			SecretKey: s3.MayString("SECRET_KEY", ""),
			Region:    s3.MayString("REGION", "us-east-1"),
			Secure:    s3.MayBool("SECURE", true),
			Bucket:    s3.MayString("BUCKET", ""),
		},
	}
}
