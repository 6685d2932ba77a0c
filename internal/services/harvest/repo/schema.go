package repo

import (
	"context"

	"tulflow/internal/modkit/repokit"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/store"
)

// ledgerDDL creates the run ledger; every statement is idempotent
var ledgerDDL = []string{
	`CREATE TABLE IF NOT EXISTS harvest_runs (
		id            text PRIMARY KEY,
		profile       text NOT NULL,
		dag_id        text NOT NULL,
		dag_timestamp text NOT NULL,
		window_from   text,
		window_until  text,
		status        text NOT NULL,
		updated       bigint NOT NULL DEFAULT 0,
		deleted       bigint NOT NULL DEFAULT 0,
		error         text,
		started_at    timestamptz NOT NULL,
		finished_at   timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS harvest_runs_started_idx ON harvest_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS harvest_sets (
		run_id      text NOT NULL REFERENCES harvest_runs (id) ON DELETE CASCADE,
		set_spec    text NOT NULL,
		status      text NOT NULL,
		updated     bigint NOT NULL DEFAULT 0,
		deleted     bigint NOT NULL DEFAULT 0,
		error       text,
		finished_at timestamptz NOT NULL,
		PRIMARY KEY (run_id, set_spec)
	)`,
	`CREATE TABLE IF NOT EXISTS harvest_markers (
		profile      text PRIMARY KEY,
		last_from    timestamptz NOT NULL,
		last_until   timestamptz NOT NULL,
		last_updated bigint NOT NULL DEFAULT 0,
		last_deleted bigint NOT NULL DEFAULT 0,
		saved_at     timestamptz NOT NULL
	)`,
}

// EnsureSchema creates the ledger tables when missing
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range ledgerDDL {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "ensure ledger schema")
		}
	}
	return nil
}

// auditDDL mirrors the row shape the audited writer inserts
const auditDDL = `CREATE TABLE IF NOT EXISTS harvest_batches (
	written_at DateTime64(3, 'UTC'),
	run_id     String,
	prefix     String,
	key        String,
	bytes      UInt64
) ENGINE = MergeTree
ORDER BY (prefix, written_at)`

// EnsureAuditSchema creates the clickhouse batch audit table when missing
func EnsureAuditSchema(ctx context.Context, ch store.Clickhouse) error {
	return perr.WrapIf(ch.Exec(ctx, auditDDL), perr.ErrorCodeDB, "ensure audit schema")
}
