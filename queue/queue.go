// Copyright (c) 2025 Eternadex Authors

// Package queue implements the durable at-least-once job queue that feeds
// the execution workers. Jobs are gob records under the "/queue/jobs/"
// keyspace; a job stays in the database until it either succeeds or exhausts
// its attempt budget, so a process restart resumes unfinished work.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/bvkgo/kv"
	"github.com/eternadex/swapd/ctxutil"
	"github.com/eternadex/swapd/gobs"
	"github.com/eternadex/swapd/kvutil"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const Keyspace = "/queue/jobs/"

// Job is one unit of work handed to the handler. Attempts counts attempts
// already made before the current one.
type Job struct {
	OrderID string

	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal

	Attempts  int
	LastError string
}

// Handler processes one attempt of a job. A nil return acknowledges the job;
// an error schedules a retry under the backoff policy.
type Handler func(ctx context.Context, job *Job) error

// ExhaustedFunc is invoked once when a job has used its full attempt budget,
// with the last attempt's error.
type ExhaustedFunc func(ctx context.Context, job *Job, err error)

type Queue struct {
	cg ctxutil.CloseGroup

	db kv.Database

	opts Options

	limiter *rate.Limiter

	handler   Handler
	exhausted ExhaustedFunc

	// wakeCh nudges the dispatcher after an enqueue, a retry reschedule or a
	// freed worker slot.
	wakeCh chan struct{}

	// slots is the worker pool semaphore.
	slots chan struct{}

	mu       sync.Mutex
	inflight map[string]bool
}

func New(db kv.Database, opts *Options) (*Queue, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	q := &Queue{
		db:       db,
		opts:     *opts,
		limiter:  rate.NewLimiter(rate.Every(opts.RatePeriod/time.Duration(opts.RateLimit)), opts.RateLimit),
		wakeCh:   make(chan struct{}, 1),
		slots:    make(chan struct{}, opts.Concurrency),
		inflight: make(map[string]bool),
	}
	return q, nil
}

func jobKey(orderID string) string {
	return path.Join(Keyspace, orderID)
}

// Start installs the handlers and begins dispatching. Jobs already present
// in the database (from a previous run) are picked up immediately.
func (q *Queue) Start(handler Handler, exhausted ExhaustedFunc) error {
	if handler == nil || exhausted == nil {
		return fmt.Errorf("queue handlers cannot be nil: %w", os.ErrInvalid)
	}
	if q.handler != nil {
		return fmt.Errorf("queue is already started: %w", os.ErrExist)
	}
	q.handler, q.exhausted = handler, exhausted
	q.cg.Go(q.dispatch)
	q.wake()
	return nil
}

// Close stops the dispatcher and waits for in-flight jobs. Unfinished jobs
// stay in the database and resume on the next Start.
func (q *Queue) Close() {
	q.cg.Close()
}

// Enqueue durably records a job and returns. Execution happens asynchronously
// on the worker pool.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if len(job.OrderID) == 0 {
		return fmt.Errorf("job order id cannot be empty: %w", os.ErrInvalid)
	}
	gj := &gobs.QueueJob{
		OrderID:   job.OrderID,
		TokenIn:   job.TokenIn,
		TokenOut:  job.TokenOut,
		Amount:    job.Amount,
		Attempts:  job.Attempts,
		CreatedAt: time.Now().UTC(),
	}
	if err := kvutil.SetDB(ctx, q.db, jobKey(job.OrderID), gj); err != nil {
		return fmt.Errorf("could not enqueue job for order %q: %w", job.OrderID, err)
	}
	q.wake()
	return nil
}

func (q *Queue) wake() {
	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
}

// dispatch scans for runnable jobs whenever it is woken up and sleeps until
// the earliest deferred retry otherwise.
func (q *Queue) dispatch(ctx context.Context) {
	for {
		wait, err := q.startReady(ctx)
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "could not scan job queue (will retry)", "err", err)
			wait = time.Second
		}

		var timerCh <-chan time.Time
		if wait > 0 {
			timerCh = time.After(wait)
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wakeCh:
		case <-timerCh:
		}
	}
}

// startReady launches all runnable jobs for which a worker slot is available.
// Returns how long to wait for the earliest deferred job, or zero when there
// is nothing scheduled.
func (q *Queue) startReady(ctx context.Context) (time.Duration, error) {
	var ready []*gobs.QueueJob
	var nextDeferred time.Time

	now := time.Now()
	begin, end := kvutil.PathRange(Keyspace)
	scan := func(_ context.Context, _ kv.Reader, key string, job *gobs.QueueJob) error {
		q.mu.Lock()
		running := q.inflight[job.OrderID]
		q.mu.Unlock()
		if running {
			return nil
		}
		if job.NotBefore.After(now) {
			if nextDeferred.IsZero() || job.NotBefore.Before(nextDeferred) {
				nextDeferred = job.NotBefore
			}
			return nil
		}
		ready = append(ready, job)
		return nil
	}
	if err := kvutil.AscendDB(ctx, q.db, begin, end, scan); err != nil {
		return 0, err
	}

	for _, job := range ready {
		select {
		case <-ctx.Done():
			return 0, context.Cause(ctx)
		case q.slots <- struct{}{}:
		}

		q.mu.Lock()
		q.inflight[job.OrderID] = true
		q.mu.Unlock()

		q.cg.Go(func(ctx context.Context) {
			q.run(ctx, job)
		})
	}

	if nextDeferred.IsZero() {
		return 0, nil
	}
	return time.Until(nextDeferred), nil
}

func (q *Queue) run(ctx context.Context, gj *gobs.QueueJob) {
	defer func() {
		<-q.slots
		q.mu.Lock()
		delete(q.inflight, gj.OrderID)
		q.mu.Unlock()
		q.wake()
	}()

	if err := q.limiter.Wait(ctx); err != nil {
		// Shutting down; the job record stays behind for the next run.
		return
	}

	job := &Job{
		OrderID:   gj.OrderID,
		TokenIn:   gj.TokenIn,
		TokenOut:  gj.TokenOut,
		Amount:    gj.Amount,
		Attempts:  gj.Attempts,
		LastError: gj.LastError,
	}

	err := q.handler(ctx, job)
	if err == nil {
		if derr := q.remove(ctx, gj.OrderID); derr != nil {
			slog.ErrorContext(ctx, "could not remove completed job (ignored)", "order", gj.OrderID, "err", derr)
		}
		return
	}

	if errors.Is(err, context.Cause(ctx)) {
		// Interrupted, not failed. Resume from scratch on the next run.
		return
	}

	gj.Attempts++
	gj.LastError = err.Error()
	job.Attempts, job.LastError = gj.Attempts, gj.LastError

	if gj.Attempts >= q.opts.MaxAttempts {
		slog.WarnContext(ctx, "job has exhausted its attempts", "order", gj.OrderID, "attempts", gj.Attempts, "err", err)
		if derr := q.remove(ctx, gj.OrderID); derr != nil {
			slog.ErrorContext(ctx, "could not remove exhausted job (ignored)", "order", gj.OrderID, "err", derr)
		}
		q.exhausted(ctx, job, err)
		return
	}

	backoff := q.opts.BackoffBase << (gj.Attempts - 1)
	gj.NotBefore = time.Now().Add(backoff)
	slog.WarnContext(ctx, "job attempt failed, retrying", "order", gj.OrderID, "attempts", gj.Attempts, "backoff", backoff, "err", err)
	if serr := kvutil.SetDB(ctx, q.db, jobKey(gj.OrderID), gj); serr != nil {
		slog.ErrorContext(ctx, "could not reschedule job (will rerun without backoff)", "order", gj.OrderID, "err", serr)
	}
}

func (q *Queue) remove(ctx context.Context, orderID string) error {
	return kv.WithReadWriter(ctx, q.db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, jobKey(orderID))
	})
}

// Depth returns the number of jobs waiting in the queue, including jobs
// backing off between attempts.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	n := 0
	begin, end := kvutil.PathRange(Keyspace)
	count := func(context.Context, kv.Reader, string, *gobs.QueueJob) error {
		n++
		return nil
	}
	if err := kvutil.AscendDB(ctx, q.db, begin, end, count); err != nil {
		return 0, err
	}
	return n, nil
}
