package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ModelGate is the only state shared between requests: a ceiling on model
// calls in flight and a pacing limiter for the provider's quota.
type ModelGate interface {
	// Acquire blocks until a slot is free. The returned func releases it.
	Acquire(ctx context.Context) (func(), error)
}

type modelGate struct {
	slots        *semaphore.Weighted
	limiter      *rate.Limiter
	queueTimeout time.Duration
}

// NewModelGate limits concurrent calls to maxConcurrent and starts of calls to
// perSecond (burst allowed). perSecond <= 0 disables pacing.
func NewModelGate(maxConcurrent int, perSecond float64, burst int, queueTimeout time.Duration) ModelGate {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if burst < 1 {
		burst = 1
	}

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &modelGate{
		slots:        semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:      rate.NewLimiter(limit, burst),
		queueTimeout: queueTimeout,
	}
}

// Acquire implements ModelGate.
func (g *modelGate) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.queueTimeout)
	defer cancel()

	if err := g.slots.Acquire(waitCtx, 1); err != nil {
		return nil, g.admissionError(ctx, err)
	}

	if err := g.limiter.Wait(waitCtx); err != nil {
		g.slots.Release(1)
		return nil, g.admissionError(ctx, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.slots.Release(1) })
	}, nil
}

// admissionError keeps the caller's own cancellation distinct from a full gate.
func (g *modelGate) admissionError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &UpstreamError{Busy: true, Err: fmt.Errorf("no model slot within %v: %w", g.queueTimeout, err)}
}
