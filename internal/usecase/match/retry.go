package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// retry runs attempt until it succeeds, fails permanently or the attempt budget is spent.
// Pair conflicts and transient store errors are retried with exponential backoff; lock
// timeouts, validation errors and cancellation surface immediately.
func (e *Engine) retry(
	ctx context.Context,
	op string,
	from, to uuid.UUID,
	attempt func(context.Context) (*Result, error),
) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.InitialBackoff
	b.MaxInterval = e.opts.MaxBackoff

	res, err := backoff.Retry(ctx, func() (*Result, error) {
		res, err := attempt(ctx)
		if err == nil {
			return res, nil
		}
		if isConflict(err) {
			return nil, err
		}
		if errors.Is(err, domain.ErrTransientStore) && !errors.Is(err, domain.ErrLockTimeout) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.opts.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			e.logger.Warn("match action retrying",
				slog.String("op", op),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		if isConflict(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrConflictExhausted, err)
		}
		return nil, err
	}
	return res, nil
}

func isConflict(err error) bool {
	return errors.Is(err, errPairConflict) || errors.Is(err, domain.ErrVersionConflict)
}
