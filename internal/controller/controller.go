// Package controller owns batch admission: it fixes the business date,
// builds the batch, and hands it to the orchestrator asynchronously.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/interfaces"
	"github.com/ternarybob/daybook/internal/models"
)

// maxRetainedInvocations bounds the in-memory invocation index. Finished
// invocations past the cap are dropped oldest-first; in-flight ones are
// always kept.
const maxRetainedInvocations = 128

// Controller accepts precompute triggers. Acceptance is immediate: the
// returned invocation only says the batch was admitted, never that any
// report exists yet. The business date is computed exactly once here, in
// the canonical timezone, and flows to every worker unchanged.
type Controller struct {
	orchestrator interfaces.BatchOrchestrator
	resolver     interfaces.TickerResolver
	logger       arbor.ILogger
	loc          *time.Location
	now          func() time.Time
	batchTimeout time.Duration

	mu          sync.RWMutex
	invocations map[string]*models.Invocation
	order       []string
	wg          sync.WaitGroup
}

// Option configures the Controller.
type Option func(*Controller)

// WithClock overrides the time source. Used by tests to pin the instant the
// business date is derived from.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller. Construction fails fast on missing dependencies
// or a nil location; a controller that cannot derive correct business dates
// must never start.
func New(
	orchestrator interfaces.BatchOrchestrator,
	resolver interfaces.TickerResolver,
	logger arbor.ILogger,
	loc *time.Location,
	batchTimeout time.Duration,
	opts ...Option,
) (*Controller, error) {
	if orchestrator == nil {
		return nil, errors.New("controller requires an orchestrator")
	}
	if resolver == nil {
		return nil, errors.New("controller requires a ticker resolver")
	}
	if loc == nil {
		return nil, errors.New("controller requires a timezone location")
	}
	if batchTimeout <= 0 {
		batchTimeout = 30 * time.Minute
	}

	c := &Controller{
		orchestrator: orchestrator,
		resolver:     resolver,
		logger:       logger,
		loc:          loc,
		now:          time.Now,
		batchTimeout: batchTimeout,
		invocations:  make(map[string]*models.Invocation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Trigger admits a precompute run over the full ticker universe.
func (c *Controller) Trigger(triggerSource string) (*models.Invocation, error) {
	universe := c.resolver.Universe()
	symbols := make([]string, 0, len(universe))
	for _, identity := range universe {
		symbols = append(symbols, identity.Canonical())
	}
	return c.TriggerSymbols(symbols, triggerSource)
}

// TriggerSymbols admits a precompute run over specific symbols, used for
// manual re-runs of failed tickers. The invocation returns as soon as the
// batch is admitted; execution continues in the background.
func (c *Controller) TriggerSymbols(symbols []string, triggerSource string) (*models.Invocation, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to run")
	}

	// The one and only place the business date is derived.
	businessDate := common.BusinessDateOf(c.now(), c.loc)

	batch := models.NewBatchRun(businessDate, symbols, triggerSource)
	invocation := models.NewInvocation(batch.ID, businessDate)

	c.mu.Lock()
	c.invocations[invocation.ID] = invocation
	c.order = append(c.order, invocation.ID)
	c.pruneLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str("invocation_id", invocation.ID).
		Str("batch_id", batch.ID).
		Str("business_date", businessDate.String()).
		Str("trigger", triggerSource).
		Int("tickers", len(symbols)).
		Msg("Precompute batch accepted")

	c.wg.Add(1)
	go c.execute(invocation, batch)

	accepted := *invocation
	return &accepted, nil
}

// execute runs the batch to completion, detached from the trigger's caller.
func (c *Controller) execute(invocation *models.Invocation, batch *models.BatchRun) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.batchTimeout)
	defer cancel()

	result, err := c.orchestrator.Run(ctx, batch)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.pruneLocked()
	invocation.CompletedAt = time.Now().UTC()
	if err != nil {
		invocation.State = models.InvocationFailed
		invocation.Err = err.Error()
		c.logger.Error().
			Str("invocation_id", invocation.ID).
			Err(err).
			Msg("Precompute batch failed to run")
		return
	}

	if result.Status == models.BatchStatusFailed {
		invocation.State = models.InvocationFailed
		invocation.Err = fmt.Sprintf("batch %s failed for all tickers", result.ID)
	} else {
		invocation.State = models.InvocationCompleted
	}
}

// pruneLocked evicts the oldest finished invocations once the index exceeds
// the retention cap. Callers must hold c.mu.
func (c *Controller) pruneLocked() {
	excess := len(c.order) - maxRetainedInvocations
	if excess <= 0 {
		return
	}

	kept := c.order[:0]
	for _, id := range c.order {
		invocation := c.invocations[id]
		if excess > 0 && invocation != nil && invocation.State != models.InvocationAccepted {
			delete(c.invocations, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

// Invocation returns a snapshot of an invocation by ID.
func (c *Controller) Invocation(id string) (*models.Invocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	invocation, ok := c.invocations[id]
	if !ok {
		return nil, false
	}
	snapshot := *invocation
	return &snapshot, true
}

// Wait blocks until all in-flight batches finish. Used during shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}
