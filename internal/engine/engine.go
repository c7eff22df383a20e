// Package engine runs the budgeting operations. Every operation that writes
// more than one row does so inside a single storage transaction.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/service"
)

// Engine orchestrates storage, allocation and the access policy.
type Engine struct {
	storage service.Storage
	logger  *zap.Logger
	now     func() time.Time
	policy  access.Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithPolicy overrides the paywall policy.
func WithPolicy(p access.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine backed by storage.
func New(storage service.Storage, opts ...Option) *Engine {
	e := &Engine{
		storage: storage,
		logger:  zap.NewNop(),
		now:     time.Now,
		policy:  access.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the paywall policy in effect.
func (e *Engine) Policy() access.Policy {
	return e.policy
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// withTx runs fn inside a storage transaction, committing on success and
// rolling back on any error.
func (e *Engine) withTx(ctx context.Context, fn func(tx service.Transaction) error) (err error) {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
