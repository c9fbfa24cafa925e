package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConflict indicates a unique or foreign key violation.
	ErrConflict = errors.New("match store conflict")
	// ErrRetryable indicates a transient failure a later sweep will likely get past.
	ErrRetryable = errors.New("match store retryable")
)

// MapError tags store failures so the driver can tell transient contention
// from real faults in its report.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrRetryable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrap(op, ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505", "23503":
			return wrap(op, ErrConflict, err) // unique_violation / foreign_key_violation
		case "40001", "40P01", "55P03":
			return wrap(op, ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"):
		return wrap(op, ErrConflict, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"):
		return wrap(op, ErrRetryable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func IsRetryable(err error) bool { return errors.Is(err, ErrRetryable) }

func wrap(op string, kind error, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(kind, err))
}
