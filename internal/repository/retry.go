// Package repository holds helpers shared by the record store repositories.
package repository

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Additional-Code/tenzai/internal/store"
)

const (
	readAttempts = 3
	readBackoff  = 100 * time.Millisecond
)

// Read runs fn and retries transient store failures with exponential backoff.
// Writes are never retried here.
func Read(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(readAttempts-1, retry.NewExponential(readBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if store.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
