package repokit

import (
	"context"
	"errors"
	"testing"

	kit "tulflow/internal/platform/testkit"
)

type guardFn func(context.Context) error

func (g guardFn) Guard(ctx context.Context) error { return g(ctx) }

func TestMustGuard(t *testing.T) {
	kit.MustNotPanic(t, func() {
		MustGuard(context.Background(), guardFn(func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("expected a deadline")
			}
			return nil
		}))
	})
	kit.MustPanic(t, func() {
		MustGuard(context.Background(), guardFn(func(context.Context) error { return errors.New("pg down") }))
	})
}

func TestBindFunc(t *testing.T) {
	b := BindFunc[string](func(q Queryer) string { return "bound" })
	kit.MustPanic(t, func() { MustBind[string](b, nil) })
}
