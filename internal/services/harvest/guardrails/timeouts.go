// Package guardrails holds cross cutting safety helpers for harvest runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall budget for a pipeline invocation
	Run time.Duration

	// Set caps the harvest of a single set
	Set time.Duration

	// DB caps each ledger write
	DB time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForSet returns a sub context for one set bounded by Set and any remaining parent budget
func ForSet(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Set)
}

// ForDB returns a sub context for a ledger write bounded by DB and any remaining parent budget
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
