package aiqueue

import (
	"context"
	"errors"
	"time"

	yoerrors "github.com/yologdev/yocore/internal/errors"
)

// maxRetries caps transient-error retries at 2, with exponential backoff
// off a 2s base.
const maxRetries = 2

// retryBackoffBase is the exponential backoff base.
const retryBackoffBase = 2 * time.Second

// SchemaError marks a decode failure that must not retry.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return "schema violation: " + e.Err.Error() }
func (e *SchemaError) Unwrap() error { return e.Err }

func (q *Queue) runWithRetry(ctx context.Context, t Task) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		decoded, err := q.runOnce(ctx, t)
		if err == nil {
			if t.Persist != nil {
				if perr := t.Persist(ctx, q.storage, decoded); perr != nil {
					return yoerrors.NewInternal(perr)
				}
			}
			return nil
		}

		lastErr = err

		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return lastErr
		}
	}

	return lastErr
}

// runOnce builds the prompt, spawns the CLI with t's timeout, and decodes
// the response. A subprocess failure is returned as a transient provider
// error; any Decode failure is wrapped in a *SchemaError, which is never
// retried.
func (q *Queue) runOnce(ctx context.Context, t Task) (any, error) {
	prompt, err := t.BuildPrompt()
	if err != nil {
		return nil, yoerrors.NewInternal(err)
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	stdout, err := q.runner(ctx, q.cli, prompt, timeout)
	if err != nil {
		return nil, yoerrors.NewProviderError(err.Error())
	}

	decoded, err := t.Decode(stdout)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	return decoded, nil
}
