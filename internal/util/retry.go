package util

import (
	"strings"
	"time"
)

// RetryOnLock retries the given function if it fails with a SQLite lock error.
// Backoff is exponential: 100ms, 200ms, 400ms.
func RetryOnLock(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "database is locked") {
			delay := baseDelay * time.Duration(1<<i)
			time.Sleep(delay)
			continue
		}

		// Not a lock error, give up immediately
		return err
	}

	return err
}

// RetryOnLockWithResult retries the given function if it fails with a SQLite
// lock error and returns the result along with any error.
func RetryOnLockWithResult[T any](operation func() (T, error)) (T, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var result T
	var err error

	for i := 0; i < maxRetries; i++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if strings.Contains(err.Error(), "database is locked") {
			delay := baseDelay * time.Duration(1<<i)
			time.Sleep(delay)
			continue
		}

		return result, err
	}

	return result, err
}
