package block

import (
	"context"
	"time"

	"github.com/sharedcode/storeengine"
)

// RetryWriter wraps a Writer so transient I/O failures are retried with the engine's
// exponential backoff (storeengine.Retry) before being surfaced to the caller, which otherwise
// treats any sub-operation failure as fatal to the whole reconcile.
type RetryWriter struct {
	inner      Writer
	maxElapsed time.Duration
}

// NewRetryWriter wraps inner with a bounded retry budget.
func NewRetryWriter(inner Writer, maxElapsed time.Duration) *RetryWriter {
	if maxElapsed <= 0 {
		maxElapsed = 5 * time.Second
	}
	return &RetryWriter{inner: inner, maxElapsed: maxElapsed}
}

func (r *RetryWriter) Write(ctx context.Context, buf []byte) (Addr, uint32, error) {
	var addr Addr
	var size uint32
	err := storeengine.Retry(ctx, r.maxElapsed, func(ctx context.Context) error {
		a, s, err := r.inner.Write(ctx, buf)
		if err != nil {
			addr, size = ADDR_INVALID, 0
			return storeengine.Retryable(err)
		}
		addr, size = a, s
		return nil
	})
	return addr, size, err
}

func (r *RetryWriter) Read(ctx context.Context, addr Addr, size uint32) ([]byte, error) {
	var out []byte
	err := storeengine.Retry(ctx, r.maxElapsed, func(ctx context.Context) error {
		b, err := r.inner.Read(ctx, addr, size)
		if err != nil {
			return storeengine.Retryable(err)
		}
		out = b
		return nil
	})
	return out, err
}

func (r *RetryWriter) Free(ctx context.Context, addr Addr, size uint32) error {
	return storeengine.Retry(ctx, r.maxElapsed, func(ctx context.Context) error {
		return storeengine.Retryable(r.inner.Free(ctx, addr, size))
	})
}
