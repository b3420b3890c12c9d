// Copyright (c) 2025 Eternadex Authors

// Package router defines the venue collaborator interface and the best-quote
// selection across an ordered set of venues.
package router

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
)

// Execution is the result of a successful swap submission.
type Execution struct {
	TxHash string
	Price  decimal.Decimal
}

// Venue is one external execution destination. Quote and Execute may fail
// transiently; the job queue's retry policy handles such failures. Execute
// must be idempotent per (orderID, price) pair, because a retried attempt
// re-runs the full pipeline.
type Venue interface {
	Name() string

	// Quote returns the output amount offered for swapping the given input
	// amount.
	Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error)

	// Execute submits the swap at the chosen execution price and returns the
	// transaction hash and realized price.
	Execute(ctx context.Context, orderID string, price decimal.Decimal) (*Execution, error)
}

// Router fans quote requests out to a fixed, ordered set of venues. The venue
// order is the tie-break priority: when two venues quote exactly the same
// output, the earlier one wins. The ordering is fixed at construction, so
// selection is deterministic across runs.
type Router struct {
	venues []Venue
}

func New(venues ...Venue) (*Router, error) {
	if len(venues) == 0 {
		return nil, fmt.Errorf("router needs at least one venue: %w", os.ErrInvalid)
	}
	seen := make(map[string]bool)
	for _, v := range venues {
		if seen[v.Name()] {
			return nil, fmt.Errorf("duplicate venue name %q: %w", v.Name(), os.ErrInvalid)
		}
		seen[v.Name()] = true
	}
	return &Router{venues: venues}, nil
}

// Venue returns the venue registered with the given name.
func (r *Router) Venue(name string) (Venue, error) {
	for _, v := range r.venues {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no venue named %q: %w", name, os.ErrNotExist)
}

// Quotes collects quotes from all venues concurrently. Any single venue
// failure fails the whole call; quoting is cheap to redo and a partial quote
// set would skew the routing decision.
func (r *Router) Quotes(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	var wg sync.WaitGroup
	results := make([]decimal.Decimal, len(r.venues))
	errs := make([]error, len(r.venues))

	for i, v := range r.venues {
		wg.Add(1)
		go func(i int, v Venue) {
			defer wg.Done()
			results[i], errs[i] = v.Quote(ctx, tokenIn, tokenOut, amount)
		}(i, v)
	}
	wg.Wait()

	quotes := make(map[string]decimal.Decimal)
	for i, v := range r.venues {
		if errs[i] != nil {
			return nil, fmt.Errorf("could not get %q quote: %w", v.Name(), errs[i])
		}
		quotes[v.Name()] = results[i]
	}
	return quotes, nil
}

// Best picks the venue with the strictly greatest output amount. Exact ties
// resolve to the venue registered earliest.
func (r *Router) Best(quotes map[string]decimal.Decimal) (Venue, decimal.Decimal) {
	var best Venue
	var bestAmount decimal.Decimal
	for _, v := range r.venues {
		amount, ok := quotes[v.Name()]
		if !ok {
			continue
		}
		if best == nil || amount.GreaterThan(bestAmount) {
			best, bestAmount = v, amount
		}
	}
	return best, bestAmount
}
