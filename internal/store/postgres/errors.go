package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTransient marks failures worth retrying: connection loss, server
// restarts, serialization conflicts and resource exhaustion.
var ErrTransient = errors.New("transient database error")

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// mapPostgresError maps PostgreSQL errors to the store's error taxonomy.
// notFound is returned for pgx.ErrNoRows so callers can distinguish "no row"
// from real failures.
func mapPostgresError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		// network failures and timeouts surface as non-PgError values
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return err
	}

	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CrashShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return fmt.Errorf("%w: database unavailable: %w", ErrTransient, err)

	case pgErr.Code == pgerrcode.SerializationFailure,
		pgErr.Code == pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: transaction conflict: %w", ErrTransient, err)

	case pgErr.Code == pgerrcode.QueryCanceled:
		return fmt.Errorf("%w: query canceled: %w", ErrTransient, err)

	case pgerrcode.IsInsufficientResources(pgErr.Code):
		return fmt.Errorf("%w: database resource limit: %w", ErrTransient, err)

	case pgErr.Code == pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}
