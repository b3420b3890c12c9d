// Copyright (c) 2025 Eternadex Authors

package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeVenue struct {
	name  string
	quote decimal.Decimal
	err   error
}

func (v *fakeVenue) Name() string { return v.name }

func (v *fakeVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	return v.quote, v.err
}

func (v *fakeVenue) Execute(ctx context.Context, orderID string, price decimal.Decimal) (*Execution, error) {
	return &Execution{TxHash: "tx_" + v.name, Price: price}, nil
}

func TestRouterNew(t *testing.T) {
	if _, err := New(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for zero venues, got %v", err)
	}
	a := &fakeVenue{name: "raydium"}
	b := &fakeVenue{name: "raydium"}
	if _, err := New(a, b); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for duplicate names, got %v", err)
	}
}

func TestQuotesFanOut(t *testing.T) {
	ctx := context.Background()
	a := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	b := &fakeVenue{name: "meteora", quote: decimal.NewFromInt(985)}
	r, err := New(a, b)
	if err != nil {
		t.Fatal(err)
	}

	quotes, err := r.Quotes(ctx, "SOL", "USDC", decimal.NewFromInt(10))
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("want 2 quotes, got %d", len(quotes))
	}
	if !quotes["raydium"].Equal(decimal.NewFromInt(990)) {
		t.Fatalf("unexpected raydium quote %v", quotes["raydium"])
	}
}

func TestQuotesAnyFailureFailsAll(t *testing.T) {
	ctx := context.Background()
	a := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	b := &fakeVenue{name: "meteora", err: fmt.Errorf("pool unavailable")}
	r, err := New(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Quotes(ctx, "SOL", "USDC", decimal.NewFromInt(10)); err == nil {
		t.Fatalf("want error when one venue fails")
	}
}

func TestBestPicksGreatestOutput(t *testing.T) {
	a := &fakeVenue{name: "raydium"}
	b := &fakeVenue{name: "meteora"}
	r, err := New(a, b)
	if err != nil {
		t.Fatal(err)
	}

	quotes := map[string]decimal.Decimal{
		"raydium": decimal.NewFromInt(985),
		"meteora": decimal.NewFromInt(990),
	}
	best, amount := r.Best(quotes)
	if best.Name() != "meteora" {
		t.Fatalf("want meteora, got %s", best.Name())
	}
	if !amount.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("unexpected best amount %v", amount)
	}
}

func TestBestTieBreaksByRegistrationOrder(t *testing.T) {
	a := &fakeVenue{name: "raydium"}
	b := &fakeVenue{name: "meteora"}
	r, err := New(a, b)
	if err != nil {
		t.Fatal(err)
	}

	quotes := map[string]decimal.Decimal{
		"raydium": decimal.NewFromInt(990),
		"meteora": decimal.NewFromInt(990),
	}
	// The decision must be stable across many evaluations.
	for i := 0; i < 100; i++ {
		best, _ := r.Best(quotes)
		if best.Name() != "raydium" {
			t.Fatalf("tie must resolve to the first registered venue, got %s", best.Name())
		}
	}
}

func TestVenueLookup(t *testing.T) {
	a := &fakeVenue{name: "raydium"}
	r, err := New(a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Venue("raydium"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Venue("orca"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
}
