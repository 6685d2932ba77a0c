// Package repo provides postgres access for the harvest run ledger
package repo

import (
	"context"
	"errors"
	"time"

	"tulflow/internal/modkit/repokit"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/services/harvest/domain"

	"github.com/jackc/pgx/v5"
)

type (
	// PG is a Postgres binder for domain.LedgerRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.LedgerRepo
func NewPG() repokit.Binder[domain.LedgerRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.LedgerRepo { return &queries{q: repokit.RequireQueryer(q)} }

// StartRun inserts the run row (idempotent on id)
func (r *queries) StartRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO harvest_runs (id, profile, dag_id, dag_timestamp, window_from, window_until, status, started_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, started_at = EXCLUDED.started_at, finished_at = null, error = null
	`, run.ID, run.Profile, run.DagID, run.Timestamp, run.Window.From, run.Window.Until, run.Status, run.StartedAt.UTC())
	return perr.FromPostgres(err, "start run")
}

// FinishSet upserts the outcome of one set
func (r *queries) FinishSet(ctx context.Context, runID string, row domain.SetRow) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO harvest_sets (run_id, set_spec, status, updated, deleted, error, finished_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), now())
		ON CONFLICT (run_id, set_spec) DO UPDATE
		SET status = EXCLUDED.status, updated = EXCLUDED.updated, deleted = EXCLUDED.deleted,
			error = EXCLUDED.error, finished_at = EXCLUDED.finished_at
	`, runID, row.Set, row.Status, row.Counts.Updated, row.Counts.Deleted, row.Error)
	return perr.FromPostgres(err, "finish set")
}

// FinishRun stores the final state of a run
func (r *queries) FinishRun(ctx context.Context, run domain.Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	_, err := r.q.Exec(ctx, `
		UPDATE harvest_runs SET
			status = $2,
			updated = $3,
			deleted = $4,
			error = NULLIF($5,''),
			finished_at = $6
		WHERE id = $1
	`, run.ID, run.Status, run.Counts.Updated, run.Counts.Deleted, run.Error, finished)
	return perr.FromPostgres(err, "finish run")
}

// Marker returns the stored incremental marker of profile
func (r *queries) Marker(ctx context.Context, profile string) (domain.Marker, bool, error) {
	m := domain.Marker{Profile: profile}
	err := r.q.QueryRow(ctx, `
		SELECT last_from, last_until, last_updated, last_deleted
		FROM harvest_markers WHERE profile = $1
	`, profile).Scan(&m.LastFrom, &m.LastUntil, &m.Counts.Updated, &m.Counts.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Marker{}, false, nil
	}
	if err != nil {
		return domain.Marker{}, false, perr.FromPostgres(err, "read marker")
	}
	return m, true, nil
}

// SaveMarker upserts the marker of m.Profile
func (r *queries) SaveMarker(ctx context.Context, m domain.Marker) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO harvest_markers (profile, last_from, last_until, last_updated, last_deleted, saved_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (profile) DO UPDATE
		SET last_from = EXCLUDED.last_from, last_until = EXCLUDED.last_until,
			last_updated = EXCLUDED.last_updated, last_deleted = EXCLUDED.last_deleted, saved_at = now()
	`, m.Profile, m.LastFrom.UTC(), m.LastUntil.UTC(), m.Counts.Updated, m.Counts.Deleted)
	return perr.FromPostgres(err, "save marker")
}

const runColumns = `id, profile, dag_id, dag_timestamp, coalesce(window_from,''), coalesce(window_until,''),
	status, updated, deleted, coalesce(error,''), started_at, finished_at`

func scanRun(row repokit.Row) (domain.Run, error) {
	var run domain.Run
	err := row.Scan(
		&run.ID, &run.Profile, &run.DagID, &run.Timestamp, &run.Window.From, &run.Window.Until,
		&run.Status, &run.Counts.Updated, &run.Counts.Deleted, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	return run, err
}

// ListRuns returns runs newest first and the total count
func (r *queries) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM harvest_runs`).Scan(&total); err != nil {
		return nil, 0, perr.FromPostgres(err, "count runs")
	}
	rows, err := r.q.Query(ctx, `SELECT `+runColumns+` FROM harvest_runs ORDER BY started_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, perr.FromPostgres(err, "list runs")
	}
	defer rows.Close()

	out := make([]domain.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, perr.FromPostgres(err, "scan run")
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, perr.FromPostgres(err, "list runs")
	}
	return out, total, nil
}

// GetRun returns one run with its set rows
func (r *queries) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := scanRun(r.q.QueryRow(ctx, `SELECT `+runColumns+` FROM harvest_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Run{}, perr.NotFoundf("run %s not found", id)
	}
	if err != nil {
		return domain.Run{}, perr.FromPostgres(err, "get run")
	}

	rows, err := r.q.Query(ctx, `
		SELECT set_spec, status, updated, deleted, coalesce(error,'')
		FROM harvest_sets WHERE run_id = $1 ORDER BY finished_at, set_spec
	`, id)
	if err != nil {
		return domain.Run{}, perr.FromPostgres(err, "get run sets")
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.SetRow
		if err := rows.Scan(&s.Set, &s.Status, &s.Counts.Updated, &s.Counts.Deleted, &s.Error); err != nil {
			return domain.Run{}, perr.FromPostgres(err, "scan set")
		}
		run.Sets = append(run.Sets, s)
	}
	return run, perr.FromPostgres(rows.Err(), "get run sets")
}
