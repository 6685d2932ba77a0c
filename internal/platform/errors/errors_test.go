package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormattingAndUnwrap(t *testing.T) {
	base := stderrs.New("connection reset")
	err := Wrapf(base, ErrorCodeUpstream, "list records page %d", 3)
	if got := err.Error(); got != "list records page 3: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
	if !stderrs.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base")
	}
	if Root(fmt.Errorf("outer: %w", err)) != base {
		t.Fatalf("Root should return the innermost cause")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(stderrs.New("x")) != ErrorCodeUnknown {
		t.Fatalf("foreign errors are unknown")
	}
	nested := fmt.Errorf("set a: %w", Storagef("put %s", "k"))
	if !IsCode(nested, ErrorCodeStorage) {
		t.Fatalf("code should survive fmt wrapping")
	}
	if WrapIf(nil, ErrorCodeDB, "x") != nil {
		t.Fatalf("WrapIf(nil) should be nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeNotFound:   http.StatusNotFound,
		ErrorCodeValidation: http.StatusBadRequest,
		ErrorCodeUpstream:   http.StatusBadGateway,
		ErrorCodeMalformed:  http.StatusUnprocessableEntity,
		ErrorCodeStorage:    http.StatusInternalServerError,
		ErrorCodeConflict:   http.StatusConflict,
		ErrorCodeUnknown:    http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatusCode(code); got != want {
			t.Fatalf("HTTPStatusCode(%d) = %d, want %d", code, got, want)
		}
	}
}

func TestMutatorsCopyOnWrite(t *testing.T) {
	orig := InvalidArgf("bad records_per_file")
	withField := WithField(orig, "records_per_file")
	withOp := WithOp(withField, "harvest.validate")

	e, _ := As(withOp)
	if e.Field() != "records_per_file" || e.Op() != "harvest.validate" {
		t.Fatalf("unexpected field/op %q/%q", e.Field(), e.Op())
	}
	o, _ := As(orig)
	if o.Field() != "" || o.Op() != "" {
		t.Fatalf("original must not be mutated")
	}
	w := WireFrom(withOp)
	if w.Code != ErrorCodeInvalidArgument || w.Field != "records_per_file" {
		t.Fatalf("unexpected wire %+v", w)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"upstream", Upstreamf("status 503"), true},
		{"unavailable", Unavailablef("later"), true},
		{"storage", Storagef("denied"), false},
		{"malformed", Malformedf("bad xml"), false},
		{"canceled", Wrap(context.Canceled, ErrorCodeUpstream, "fetch"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("%s: Retryable = %v, want %v", c.name, got, c.want)
		}
	}
}
