package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/retry"
)

/* Dispatcher drives the poll -> claim -> dispatch cycle over a bounded
 * pool of delivery workers.
 *
 * Correctness does not depend on this process being alone: the store's
 * conditional claim is what prevents double delivery, so any number of
 * dispatcher instances can poll the same store. This loop only decides
 * how much work to pull and when.
 */

const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 10
	DefaultWorkerCount  = 5
)

// Options tunes the dispatcher loop
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	WorkerCount  int
	// StaleAfter is how long an event may sit in_flight before it is
	// considered abandoned and returned to pending. Should comfortably
	// exceed the delivery timeout; 2x is a conservative floor.
	StaleAfter time.Duration
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.WorkerCount <= 0 {
		o.WorkerCount = DefaultWorkerCount
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 2 * DefaultTimeout
	}
}

type Dispatcher struct {
	repo    event.Claimer
	sender  *Sender
	policy  *retry.Policy
	logger  *slog.Logger
	opts    Options
	slots   chan struct{} // worker pool semaphore
	wg      sync.WaitGroup
	nowFunc func() time.Time
}

// NewDispatcher creates a dispatcher over the given store and sender
func NewDispatcher(repo event.Claimer, sender *Sender, policy *retry.Policy, logger *slog.Logger, opts Options) *Dispatcher {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:    repo,
		sender:  sender,
		policy:  policy,
		logger:  logger,
		opts:    opts,
		slots:   make(chan struct{}, opts.WorkerCount),
		nowFunc: time.Now,
	}
}

// Run polls until the context is cancelled, then waits for in-flight
// attempts to report their outcomes before returning
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started",
		"poll_interval", d.opts.PollInterval,
		"batch_size", d.opts.BatchSize,
		"workers", d.opts.WorkerCount,
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping, draining workers")
			d.wg.Wait()
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

// runCycle performs one poll iteration. A store error skips the cycle:
// the next tick is the poll loop's backoff.
func (d *Dispatcher) runCycle(ctx context.Context) {
	now := d.nowFunc().UTC()

	released, err := d.repo.ReleaseStale(ctx, d.opts.StaleAfter, now)
	if err != nil {
		d.logger.Error("failed to release stale events", "error", err)
	} else if released > 0 {
		staleReclaimed.Add(float64(released))
		d.logger.Warn("reclaimed stuck in_flight events", "count", released)
	}

	/* Backpressure: never claim more than the pool can start right now.
	 * Claimed events that could not be handed to a worker would sit
	 * in_flight doing nothing until the staleness reclaim found them.
	 */
	free := cap(d.slots) - len(d.slots)
	if free == 0 {
		d.logger.Debug("all workers busy, skipping claim")
		return
	}
	batch := d.opts.BatchSize
	if batch > free {
		batch = free
	}

	claimed, err := d.repo.Claim(ctx, batch, now)
	if err != nil {
		claimErrors.Inc()
		d.logger.Error("failed to claim events", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	claimedTotal.Add(float64(len(claimed)))
	d.logger.Debug("claimed events", "count", len(claimed))

	for _, e := range claimed {
		d.dispatch(ctx, e)
	}
}

// dispatch hands a claimed event to a worker slot. The batch size is
// bounded by free slots, so acquisition should not block; if it somehow
// would, the event is left in_flight for the staleness reclaim.
func (d *Dispatcher) dispatch(ctx context.Context, e event.Event) {
	select {
	case d.slots <- struct{}{}:
	default:
		d.logger.Warn("no worker available, leaving event in_flight", "event_id", e.ID)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		d.deliver(ctx, e)
	}()
}

// deliver runs one attempt and records its outcome.
// The attempt is detached from the run context so shutdown does not kill
// a request mid-flight; the sender's own timeout still bounds it, and
// Run waits for the outcome to be recorded before returning.
func (d *Dispatcher) deliver(ctx context.Context, e event.Event) {
	attemptCtx := context.WithoutCancel(ctx)

	result := d.sender.Attempt(attemptCtx, e)
	now := d.nowFunc().UTC()
	decision := d.policy.Decide(e.Attempts, e.MaxAttempts, result.Result, now)

	outcome := event.Outcome{
		ResponseStatus: result.ResponseStatus,
		ResponseBody:   result.ResponseBody,
	}
	switch decision.Action {
	case retry.Deliver:
		outcome.Status = event.Delivered
	case retry.Retry:
		retryAt := decision.RetryAt
		outcome.Status = event.Pending
		outcome.NextRetryAt = &retryAt
	case retry.Expire:
		outcome.Status = event.Expired
	case retry.Fail:
		outcome.Status = event.Failed
	}

	attemptsTotal.WithLabelValues(decision.Action.String()).Inc()

	if err := d.repo.RecordOutcome(attemptCtx, e.ID, outcome, now); err != nil {
		// The claim stays in_flight and the staleness reclaim will
		// eventually retry the event; at-least-once survives this.
		d.logger.Error("failed to record outcome",
			"event_id", e.ID,
			"outcome", outcome.Status.String(),
			"error", err,
		)
		return
	}

	switch outcome.Status {
	case event.Delivered:
		d.logger.Info("event delivered",
			"event_id", e.ID,
			"vendor_id", e.VendorID,
			"attempts", e.Attempts+1,
		)
	case event.Pending:
		d.logger.Info("event scheduled for retry",
			"event_id", e.ID,
			"vendor_id", e.VendorID,
			"attempts", e.Attempts+1,
			"next_retry_at", decision.RetryAt,
		)
	default:
		d.logger.Warn("event terminated",
			"event_id", e.ID,
			"vendor_id", e.VendorID,
			"status", outcome.Status.String(),
			"attempts", e.Attempts+1,
		)
	}
}
