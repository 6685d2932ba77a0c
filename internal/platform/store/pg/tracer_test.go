package pg

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tulflow/internal/platform/logger"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	in := "SELECT id\n\t FROM harvest_runs\r\n WHERE id = $1"
	if got := compact(in); got != "SELECT id FROM harvest_runs WHERE id = $1" {
		t.Fatalf("compact = %q", got)
	}
}

func TestTracer_SlowAndRun(t *testing.T) {
	var buf bytes.Buffer
	root := zerolog.New(&buf).Level(zerolog.ErrorLevel)
	tr := Tracer(root)

	ctx := logger.WithRun(context.Background(), "dag-7", "")
	tr.OnQuery(ctx, QueryEvent{SQL: "SELECT 1", ElapsedUS: 2500, Slow: true, Err: errors.New("x")})

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"run_id":"dag-7"`, `"elapsed_ms":2.5`, `"sql":"SELECT 1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
