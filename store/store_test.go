// Copyright (c) 2025 Eternadex Authors

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/eternadex/swapd/order"
	"github.com/shopspring/decimal"
)

func newPending(t *testing.T, s *Store) *order.Order {
	t.Helper()
	v := order.New("SOL", "USDC", decimal.NewFromInt(10))
	if err := s.Create(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	v := newPending(t, s)

	got, err := s.Find(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != v.ID || got.Status != order.Pending {
		t.Fatalf("unexpected order snapshot %+v", got)
	}
	if !got.Amount.Equal(v.Amount) {
		t.Fatalf("want amount %v, got %v", v.Amount, got.Amount)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	v := newPending(t, s)
	if err := s.Create(ctx, v); !errors.Is(err, os.ErrExist) {
		t.Fatalf("want os.ErrExist, got %v", err)
	}
}

func TestFindUnknownOrder(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	if _, err := s.Find(ctx, "4e8bb6a0-0000-0000-0000-000000000000"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
}

func TestUpdateStatusAppendsLogs(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	v := newPending(t, s)

	updates := []*Update{
		{Status: order.Routing, LogEntry: `{"status":"routing"}`},
		{Status: order.Routing, LogEntry: `{"status":"routing","decision":"raydium"}`},
		{Status: order.Building, LogEntry: `{"status":"building"}`},
		{Status: order.Submitted, LogEntry: `{"status":"submitted"}`},
	}
	for _, u := range updates {
		if err := s.UpdateStatus(ctx, v.ID, u); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Find(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != order.Submitted {
		t.Fatalf("want submitted, got %v", got.Status)
	}
	if len(got.Logs) != len(updates) {
		t.Fatalf("want %d log entries, got %d", len(updates), len(got.Logs))
	}
	if got.Logs[1] != `{"status":"routing","decision":"raydium"}` {
		t.Fatalf("logs are not append-only in order: %v", got.Logs)
	}
}

func TestUpdateStatusCoalescesFields(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	v := newPending(t, s)

	price := decimal.RequireFromString("99.0")
	u := &Update{
		Status:   order.Confirmed,
		LogEntry: `{"status":"confirmed"}`,
		TxHash:   "tx_deadbeef",
		Price:    &price,
	}
	if err := s.UpdateStatus(ctx, v.ID, u); err != nil {
		t.Fatal(err)
	}

	got, err := s.Find(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TxHash != "tx_deadbeef" {
		t.Fatalf("want tx hash, got %q", got.TxHash)
	}
	if !got.ExecutionPrice.Equal(price) {
		t.Fatalf("want price %v, got %v", price, got.ExecutionPrice)
	}
}

func TestUpdateStatusKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	v := newPending(t, s)

	// Intermediate transitions carry no tx hash or price; earlier values must
	// survive them.
	if err := s.UpdateStatus(ctx, v.ID, &Update{Status: order.Routing, TxHash: "tx_early"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, v.ID, &Update{Status: order.Building}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Find(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TxHash != "tx_early" {
		t.Fatalf("empty TxHash update must not clear the stored value, got %q", got.TxHash)
	}
}

func TestUpdateStatusRejectsBackwardMoves(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	v := newPending(t, s)

	if err := s.UpdateStatus(ctx, v.ID, &Update{Status: order.Submitted}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, v.ID, &Update{Status: order.Routing}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for a backward move, got %v", err)
	}
}

func TestUpdateStatusRejectsTerminalMutation(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())
	v := newPending(t, s)

	if err := s.UpdateStatus(ctx, v.ID, &Update{Status: order.Failed, LogEntry: `{"status":"failed"}`}); err != nil {
		t.Fatal(err)
	}
	for _, next := range []order.Status{order.Routing, order.Confirmed, order.Failed} {
		if err := s.UpdateStatus(ctx, v.ID, &Update{Status: next}); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("terminal order accepted a %v update: %v", next, err)
		}
	}

	got, err := s.Find(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != order.Failed || len(got.Logs) != 1 {
		t.Fatalf("terminal order was mutated: %+v", got)
	}
}
