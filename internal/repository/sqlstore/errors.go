package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps a driver error onto the domain taxonomy. Serialization failures become
// version conflicts, constraint violations become invalid input and everything else is
// treated as a transient store failure. Context errors are returned untouched.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, ctxErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	switch {
	case isSerializationFailure(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrVersionConflict, err)
	case isConstraintError(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrInvalidInput, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, domain.Transient(err))
	}
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isConstraintError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
