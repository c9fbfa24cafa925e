package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		conflict  bool
		retryable bool
	}{
		{name: "nil", err: nil},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, conflict: true},
		{name: "deadlock", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), retryable: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "message", err: errors.New("ERROR: duplicate key value violates unique constraint"), conflict: true},
		{name: "plain", err: errors.New("syntax error at or near")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if tc.err == nil {
				if got != nil {
					t.Fatalf("want nil got=%v", got)
				}
				return
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("original error lost: %v", got)
			}
			if errors.Is(got, ErrConflict) != tc.conflict {
				t.Fatalf("conflict: want=%v got=%v", tc.conflict, got)
			}
			if IsRetryable(got) != tc.retryable {
				t.Fatalf("retryable: want=%v got=%v", tc.retryable, got)
			}
		})
	}
}
