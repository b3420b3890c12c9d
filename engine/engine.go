// Copyright (c) 2025 Eternadex Authors

// Package engine implements the execution worker that drives one order
// through the pipeline: routing, building, submission and the terminal
// confirmed or failed state. Stages run sequentially for one order; the
// queue's worker pool provides cross-order concurrency.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/eternadex/swapd/ctxutil"
	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/queue"
	"github.com/eternadex/swapd/router"
)

// Notifier records and publishes one pipeline transition.
type Notifier interface {
	Notify(ctx context.Context, orderID string, ev order.Event) error
}

type Engine struct {
	router *router.Router

	notifier Notifier

	// buildDelay simulates transaction construction time before submission.
	buildDelay time.Duration
}

func New(rt *router.Router, notifier Notifier, buildDelay time.Duration) *Engine {
	return &Engine{
		router:     rt,
		notifier:   notifier,
		buildDelay: buildDelay,
	}
}

// Execute runs one attempt of an order's pipeline. Any returned error is
// transient from the queue's point of view: the retry policy decides whether
// the pipeline restarts from routing or the job moves to the failure path.
func (e *Engine) Execute(ctx context.Context, job *queue.Job) error {
	id := job.OrderID

	if err := e.notifier.Notify(ctx, id, order.RoutingEvent{Message: "Fetching quotes..."}); err != nil {
		return err
	}

	quotes, err := e.router.Quotes(ctx, job.TokenIn, job.TokenOut, job.Amount)
	if err != nil {
		return fmt.Errorf("could not collect venue quotes: %w", err)
	}
	venue, price := e.router.Best(quotes)

	ev := order.RoutingEvent{
		Quotes:   quotes,
		Decision: fmt.Sprintf("Selected %s (Best Liquidity/Price)", venue.Name()),
	}
	if err := e.notifier.Notify(ctx, id, ev); err != nil {
		return err
	}

	if err := e.notifier.Notify(ctx, id, order.BuildingEvent{Message: "Constructing transaction..."}); err != nil {
		return err
	}
	if e.buildDelay > 0 {
		ctxutil.Sleep(ctx, e.buildDelay)
		if err := context.Cause(ctx); err != nil {
			return err
		}
	}

	if err := e.notifier.Notify(ctx, id, order.SubmittedEvent{Message: "Sent to network..."}); err != nil {
		return err
	}

	result, err := venue.Execute(ctx, id, price)
	if err != nil {
		return fmt.Errorf("could not execute swap on %q: %w", venue.Name(), err)
	}

	confirmed := order.ConfirmedEvent{
		TxHash:     result.TxHash,
		FinalPrice: result.Price,
		Message:    "Swap successful",
	}
	return e.notifier.Notify(ctx, id, confirmed)
}

// Fail moves an order to the terminal failed state after the queue reports
// the attempt budget is exhausted. Called exactly once per failed order.
func (e *Engine) Fail(ctx context.Context, job *queue.Job, cause error) {
	ev := order.FailedEvent{Error: cause.Error()}
	// Use a fresh context so the failure is recorded even during shutdown.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	_ = e.notifier.Notify(ctx, job.OrderID, ev)
}
