package guardrails

import (
	"context"
	"errors"

	"tulflow/internal/modkit/repokit"
)

// ErrLeaseHeld signals another run of the same profile is in progress
var ErrLeaseHeld = errors.New("harvest: profile lease already held")

// Lease runs do while holding a profile scoped lock
type Lease func(ctx context.Context, profile string, do func(context.Context) error) error

// MakeAdvisoryLease returns a Lease backed by a transaction scoped Postgres advisory lock.
// The transaction stays open for the whole run so the lock is released on commit, rollback
// or a dropped connection. A held lock returns ErrLeaseHeld without running do
func MakeAdvisoryLease(db repokit.TxRunner) Lease {
	return func(ctx context.Context, profile string, do func(context.Context) error) error {
		return db.Tx(ctx, func(q repokit.Queryer) error {
			var got bool
			if err := q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtext('tulflow.harvest'), hashtext($1))`, profile).Scan(&got); err != nil {
				return err
			}
			if !got {
				return ErrLeaseHeld
			}
			return do(ctx)
		})
	}
}
