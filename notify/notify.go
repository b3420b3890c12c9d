// Copyright (c) 2025 Eternadex Authors

// Package notify implements the persist-then-publish transition step. Every
// pipeline transition goes through Notify: the new state is written to the
// order store first, then the event is published on the order's bus channel.
// Persistence failures never block publication: the live event is the primary
// signal and the store is a durability backstop.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/store"
)

// Store is the slice of the order store consumed here.
type Store interface {
	UpdateStatus(ctx context.Context, id string, u *store.Update) error
}

// Publisher is the slice of the event bus consumed here.
type Publisher interface {
	Publish(orderID string, ev order.Event)
}

// Alerter delivers out-of-band failure alerts. Optional.
type Alerter interface {
	SendMessage(ctx context.Context, text string) error
}

type Notifier struct {
	store Store
	bus   Publisher

	alerter Alerter
}

func New(store Store, bus Publisher, alerter Alerter) *Notifier {
	return &Notifier{
		store:   store,
		bus:     bus,
		alerter: alerter,
	}
}

// Notify records one transition durably and then publishes it. The returned
// error only ever reflects payload serialization problems; store errors are
// logged and swallowed so that a storage outage cannot stall the pipeline.
func (n *Notifier) Notify(ctx context.Context, orderID string, ev order.Event) error {
	frame, err := order.EncodeFrame(ev)
	if err != nil {
		return fmt.Errorf("could not serialize %v event payload: %w", ev.Status(), err)
	}

	u := &store.Update{
		Status:   ev.Status(),
		LogEntry: string(frame),
	}
	if c, ok := ev.(order.ConfirmedEvent); ok {
		u.TxHash = c.TxHash
		price := c.FinalPrice
		u.Price = &price
	}
	if err := n.store.UpdateStatus(ctx, orderID, u); err != nil {
		slog.ErrorContext(ctx, "could not persist order transition (event is still published)",
			"order", orderID, "status", ev.Status(), "err", err)
	}

	n.bus.Publish(orderID, ev)

	if f, ok := ev.(order.FailedEvent); ok && n.alerter != nil {
		text := fmt.Sprintf("order %s failed: %s", orderID, f.Error)
		if err := n.alerter.SendMessage(ctx, text); err != nil {
			slog.WarnContext(ctx, "could not send failure alert (ignored)", "order", orderID, "err", err)
		}
	}
	return nil
}
