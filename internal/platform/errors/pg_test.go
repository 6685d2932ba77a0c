package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDBErrorCode(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeInvalidArgument},
		{"23502", ErrorCodeValidation},
		{"40001", ErrorCodeDB},
		{"57P03", ErrorCodeUnavailable},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(&pgconn.PgError{Code: c.code})
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v,%v want %v", c.code, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("non pg error should report ok=false")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil should pass through")
	}
	err := FromPostgres(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), "insert run")
	if !IsCode(err, ErrorCodeDuplicateKey) || !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"unique", &pgconn.PgError{Code: "23505"}, false},
		{"commit text", stderrs.New("commit unexpectedly resulted in rollback"), true},
		{"canceled", context.Canceled, false},
		{"plain", stderrs.New("boom"), false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", c.name, got, c.want)
		}
	}
}
