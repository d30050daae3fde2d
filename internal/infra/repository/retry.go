package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const maxTxAttempts = 3

// PostgreSQL SQLSTATEs that are safe to retry from the top of the transaction.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
