// Copyright (c) 2025 Eternadex Authors

package router

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/eternadex/swapd/ctxutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimVenue is a simulated execution venue. It quotes around a fixed base
// price with a venue-specific jitter band and fails a configurable fraction
// of executions, which exercises the queue's retry path end to end.
type SimVenue struct {
	name string

	basePrice  decimal.Decimal
	minFactor  float64
	jitterSpan float64

	quoteDelay   time.Duration
	executeDelay time.Duration

	failureRate float64
}

var _ Venue = &SimVenue{}

var simBasePrice = decimal.NewFromInt(100)

// SimVenues returns the default simulated venue set in priority order:
// raydium first, meteora second.
func SimVenues() []Venue {
	return []Venue{
		&SimVenue{
			name:         "raydium",
			basePrice:    simBasePrice,
			minFactor:    0.98,
			jitterSpan:   0.04,
			quoteDelay:   200 * time.Millisecond,
			executeDelay: 2 * time.Second,
			failureRate:  0.1,
		},
		&SimVenue{
			name:         "meteora",
			basePrice:    simBasePrice,
			minFactor:    0.97,
			jitterSpan:   0.06,
			quoteDelay:   200 * time.Millisecond,
			executeDelay: 2 * time.Second,
			failureRate:  0.1,
		},
	}
}

func (v *SimVenue) Name() string {
	return v.name
}

func (v *SimVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	ctxutil.Sleep(ctx, v.quoteDelay)
	if err := context.Cause(ctx); err != nil {
		return decimal.Zero, err
	}
	factor := decimal.NewFromFloat(v.minFactor + rand.Float64()*v.jitterSpan)
	return amount.Mul(v.basePrice).Mul(factor), nil
}

func (v *SimVenue) Execute(ctx context.Context, orderID string, price decimal.Decimal) (*Execution, error) {
	delay := v.executeDelay + time.Duration(rand.Int63n(int64(time.Second)))
	ctxutil.Sleep(ctx, delay)
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < v.failureRate {
		return nil, fmt.Errorf("%s: simulated rpc timeout", v.name)
	}
	return &Execution{
		TxHash: "tx_" + uuid.New().String()[:8],
		Price:  price,
	}, nil
}
