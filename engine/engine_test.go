// Copyright (c) 2025 Eternadex Authors

package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/queue"
	"github.com/eternadex/swapd/router"
	"github.com/shopspring/decimal"
)

type fakeVenue struct {
	name  string
	quote decimal.Decimal

	quoteErr   error
	executeErr error

	executed int
}

func (v *fakeVenue) Name() string { return v.name }

func (v *fakeVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	return v.quote, v.quoteErr
}

func (v *fakeVenue) Execute(ctx context.Context, orderID string, price decimal.Decimal) (*router.Execution, error) {
	if v.executeErr != nil {
		return nil, v.executeErr
	}
	v.executed++
	return &router.Execution{TxHash: "tx_" + v.name, Price: price}, nil
}

type recordingNotifier struct {
	events []order.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, orderID string, ev order.Event) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) statuses() []order.Status {
	var vs []order.Status
	for _, ev := range n.events {
		vs = append(vs, ev.Status())
	}
	return vs
}

func newTestEngine(t *testing.T, n Notifier, venues ...router.Venue) *Engine {
	t.Helper()
	rt, err := router.New(venues...)
	if err != nil {
		t.Fatal(err)
	}
	return New(rt, n, 0)
}

func testJob() *queue.Job {
	return &queue.Job{
		OrderID:  "o1",
		TokenIn:  "SOL",
		TokenOut: "USDC",
		Amount:   decimal.NewFromInt(10),
	}
}

func TestExecutePipeline(t *testing.T) {
	ctx := context.Background()
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	meteora := &fakeVenue{name: "meteora", quote: decimal.NewFromInt(985)}
	n := new(recordingNotifier)
	e := newTestEngine(t, n, raydium, meteora)

	if err := e.Execute(ctx, testJob()); err != nil {
		t.Fatal(err)
	}

	want := []order.Status{order.Routing, order.Routing, order.Building, order.Submitted, order.Confirmed}
	got := n.statuses()
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: want %v, got %v", i, want[i], got[i])
		}
	}

	decision := n.events[1].(order.RoutingEvent)
	if len(decision.Quotes) != 2 {
		t.Fatalf("decision event must carry all quotes, got %v", decision.Quotes)
	}
	if !strings.Contains(decision.Decision, "raydium") {
		t.Fatalf("best quote venue must win, got %q", decision.Decision)
	}

	confirmed := n.events[4].(order.ConfirmedEvent)
	if confirmed.TxHash != "tx_raydium" {
		t.Fatalf("confirmed must carry the winning venue's tx hash, got %q", confirmed.TxHash)
	}
	if !confirmed.FinalPrice.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("final price must match the executed price, got %v", confirmed.FinalPrice)
	}
	if meteora.executed != 0 {
		t.Fatalf("losing venue must not execute")
	}
}

func TestExecuteQuoteFailure(t *testing.T) {
	ctx := context.Background()
	raydium := &fakeVenue{name: "raydium", quoteErr: fmt.Errorf("pool unavailable")}
	n := new(recordingNotifier)
	e := newTestEngine(t, n, raydium)

	if err := e.Execute(ctx, testJob()); err == nil {
		t.Fatalf("quote failure must fail the attempt")
	}
	// Only the first routing event was emitted; no terminal event, the queue
	// owns the retry/fail decision.
	got := n.statuses()
	if len(got) != 1 || got[0] != order.Routing {
		t.Fatalf("want a single routing event, got %v", got)
	}
	if raydium.executed != 0 {
		t.Fatalf("must not execute after a quote failure")
	}
}

func TestExecuteSubmitFailure(t *testing.T) {
	ctx := context.Background()
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990), executeErr: fmt.Errorf("simulated rpc timeout")}
	n := new(recordingNotifier)
	e := newTestEngine(t, n, raydium)

	if err := e.Execute(ctx, testJob()); err == nil {
		t.Fatalf("execute failure must fail the attempt")
	}
	got := n.statuses()
	if got[len(got)-1] != order.Submitted {
		t.Fatalf("pipeline must stop at submitted, got %v", got)
	}
}

func TestFailEmitsTerminalEvent(t *testing.T) {
	ctx := context.Background()
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	n := new(recordingNotifier)
	e := newTestEngine(t, n, raydium)

	e.Fail(ctx, testJob(), fmt.Errorf("simulated rpc timeout"))

	got := n.statuses()
	if len(got) != 1 || got[0] != order.Failed {
		t.Fatalf("want a single failed event, got %v", got)
	}
	failed := n.events[0].(order.FailedEvent)
	if failed.Error != "simulated rpc timeout" {
		t.Fatalf("failed event must carry the cause, got %q", failed.Error)
	}
}

func TestFailSurvivesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	n := new(recordingNotifier)
	e := newTestEngine(t, n, raydium)

	e.Fail(ctx, testJob(), fmt.Errorf("shutdown"))
	if got := n.statuses(); len(got) != 1 || got[0] != order.Failed {
		t.Fatalf("failure must be recorded during shutdown, got %v", got)
	}
}
