package guardrails

import (
	"context"
	"errors"
	"testing"
	"time"

	"tulflow/internal/modkit/repokit"
)

func TestWithChildTimeout_NeverExtends(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c2 := ForSet(parent, Timeouts{Set: time.Hour})
	defer c2()
	if Remaining(ctx) > 50*time.Millisecond {
		t.Fatalf("child outlives parent: %s", Remaining(ctx))
	}

	ctx, c3 := ForDB(context.Background(), Timeouts{})
	defer c3()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero budget should not set a deadline")
	}

	ctx, c4 := WithRun(context.Background(), Timeouts{Run: time.Minute})
	defer c4()
	if r := Remaining(ctx); r <= 0 || r > time.Minute {
		t.Fatalf("run budget = %s", r)
	}
}

type row struct{ v bool }

func (r row) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.v
	return nil
}

type lockDB struct {
	repokit.TxRunner
	free bool
	sql  string
}

func (d *lockDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(d) }

func (d *lockDB) QueryRow(_ context.Context, sql string, _ ...any) repokit.Row {
	d.sql = sql
	return row{v: d.free}
}

func TestAdvisoryLease(t *testing.T) {
	db := &lockDB{free: true}
	ran := false
	if err := MakeAdvisoryLease(db)(context.Background(), "alma", func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("free lock: ran=%v err=%v", ran, err)
	}

	db.free = false
	ran = false
	err := MakeAdvisoryLease(db)(context.Background(), "alma", func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, ErrLeaseHeld) || ran {
		t.Fatalf("held lock: ran=%v err=%v", ran, err)
	}
}
