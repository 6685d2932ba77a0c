package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the ledger can hit
const (
	sqlUniqueViolation     = "23505"
	sqlForeignKeyViolation = "23503"
	sqlNotNullViolation    = "23502"
	sqlCheckViolation      = "23514"
	sqlBadText             = "22P02"
	sqlTruncation          = "22001"
	sqlSerialization       = "40001"
	sqlDeadlock            = "40P01"
	sqlLockNotAvailable    = "55P03"
	sqlReadOnly            = "25006"
	sqlStartingUp          = "57P03"
)

// contention is the set of SQLSTATEs worth a retry
var contention = map[string]bool{sqlSerialization: true, sqlDeadlock: true, sqlLockNotAvailable: true}

func pgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// IsDuplicateKey reports a unique constraint violation
func IsDuplicateKey(err error) bool {
	pe, ok := pgError(err)
	return ok && pe.Code == sqlUniqueViolation
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false for non Postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	pe, ok := pgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pe.Code {
	case sqlUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case sqlForeignKeyViolation, sqlBadText, sqlTruncation:
		return ErrorCodeInvalidArgument, true
	case sqlNotNullViolation, sqlCheckViolation:
		return ErrorCodeValidation, true
	case sqlReadOnly, sqlStartingUp:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code, ErrorCodeDB when it is not a Postgres error
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports a transient database condition: lock contention by SQLSTATE, or the
// driver text pgx surfaces on a rolled back commit or a statement timeout
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	root := Root(err)
	if pe, ok := pgError(root); ok {
		return contention[pe.Code]
	}
	s := strings.ToLower(root.Error())
	for _, frag := range []string{
		"commit unexpectedly resulted in rollback",
		"deadlock detected",
		"could not serialize access",
		"canceling statement due to statement timeout",
		"canceling statement due to lock timeout",
		"terminating connection due to administrator command",
	} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}
