package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// RetryPolicy bounds retries of operations that lost a lock wait.
type RetryPolicy struct {
	MaxTries        uint          `yaml:"max_tries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// RetryTransient runs op until it succeeds, fails with a non-retryable error,
// or the policy is exhausted. Only entity.ErrLockTimeout is retried; each
// attempt starts a fresh transaction.
func RetryTransient[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	if policy.MaxTries == 0 {
		policy = DefaultRetryPolicy()
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if !entity.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		slog.Warn("Retrying after lock timeout", "attempt", attempt, "error", err)
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
	)
}
