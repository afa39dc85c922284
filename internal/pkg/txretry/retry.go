// Package txretry повторяет транзакцию ограниченное число раз при конфликте параллельного изменения.
package txretry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
)

const DefaultAttempts = 3

// Do вызывает fn до attempts раз. Повторяются только ошибки repository.IsRetryable,
// остальные возвращаются сразу.
func Do(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond
	eb.MaxElapsedTime = 5 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !repository.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
