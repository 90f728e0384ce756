// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// Backoff bounds for schema retries after a failed start.
const (
	DefaultBootstrapBaseDelay = time.Second
	DefaultBootstrapMaxDelay  = 30 * time.Second
)

// Bootstrap supervises schema creation. The first attempt happens in Start;
// if it fails the service keeps running degraded and the schema is retried in
// the background until it succeeds or the context ends.
type Bootstrap struct {
	db        Execer
	logger    *slog.Logger
	baseDelay time.Duration
	maxDelay  time.Duration

	ready    atomic.Bool
	attempts atomic.Int64
	wg       sync.WaitGroup
}

// BootstrapOption configures a Bootstrap.
type BootstrapOption func(*Bootstrap)

// WithBootstrapLogger sets the logger.
func WithBootstrapLogger(logger *slog.Logger) BootstrapOption {
	return func(b *Bootstrap) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBootstrapBackoff sets the retry delays.
func WithBootstrapBackoff(base, maxDelay time.Duration) BootstrapOption {
	return func(b *Bootstrap) {
		b.baseDelay = base
		b.maxDelay = maxDelay
	}
}

// NewBootstrap creates a Bootstrap for db.
func NewBootstrap(db Execer, opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{
		db:        db,
		logger:    slog.Default(),
		baseDelay: DefaultBootstrapBaseDelay,
		maxDelay:  DefaultBootstrapMaxDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start makes one EnsureSchema attempt and returns its error. On failure a
// background retry loop is started; it stops when ctx is cancelled.
func (b *Bootstrap) Start(ctx context.Context) error {
	err := b.attempt(ctx)
	if err == nil {
		return nil
	}

	b.logger.WarnContext(ctx, "schema bootstrap failed, serving degraded and retrying in background",
		"error", err,
		"retry_base", b.baseDelay.String(),
		"retry_max", b.maxDelay.String(),
	)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.retry(ctx)
	}()
	return err
}

func (b *Bootstrap) retry(ctx context.Context) {
	backoff := retry.WithCappedDuration(b.maxDelay, retry.NewExponential(b.baseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := b.attempt(ctx); err != nil {
			b.logger.DebugContext(ctx, "schema bootstrap retry failed", "error", err, "attempt", b.attempts.Load())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		b.logger.InfoContext(ctx, "schema bootstrap retries stopped", "error", err)
		return
	}
	b.logger.InfoContext(ctx, "schema bootstrap succeeded", "attempts", b.attempts.Load())
}

func (b *Bootstrap) attempt(ctx context.Context) error {
	b.attempts.Add(1)
	if err := EnsureSchema(ctx, b.db); err != nil {
		return err
	}
	b.ready.Store(true)
	return nil
}

// Ready reports whether the accounts schema is known to exist.
func (b *Bootstrap) Ready() bool {
	return b.ready.Load()
}

// Attempts returns how many EnsureSchema calls have been made.
func (b *Bootstrap) Attempts() int64 {
	return b.attempts.Load()
}

// Wait blocks until the background retry loop, if any, has exited.
func (b *Bootstrap) Wait() {
	b.wg.Wait()
}
