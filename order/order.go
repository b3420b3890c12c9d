// Copyright (c) 2025 Eternadex Authors

package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the durable lifecycle record for one trade-execution request. It
// is created at Pending by the intake handler and mutated only through the
// store's coalescing update on behalf of the notifier.
type Order struct {
	ID string

	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal

	Status Status

	// TxHash and ExecutionPrice are set once, by the confirmed transition, and
	// never cleared afterwards.
	TxHash         string
	ExecutionPrice decimal.Decimal

	// Logs is the append-only sequence of serialized transition payloads.
	Logs []string

	CreatedAt time.Time
}

// New creates a pending order with a fresh unique id.
func New(tokenIn, tokenOut string, amount decimal.Decimal) *Order {
	return &Order{
		ID:        uuid.New().String(),
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Amount:    amount,
		Status:    Pending,
		CreatedAt: time.Now().UTC(),
	}
}

func (v *Order) Check() error {
	if _, err := uuid.Parse(v.ID); err != nil {
		return fmt.Errorf("order id %q is not an uuid: %w", v.ID, err)
	}
	if len(v.TokenIn) == 0 || len(v.TokenOut) == 0 {
		return fmt.Errorf("order tokens cannot be empty")
	}
	if v.TokenIn == v.TokenOut {
		return fmt.Errorf("order input and output tokens cannot be the same")
	}
	if !v.Amount.IsPositive() {
		return fmt.Errorf("order amount must be positive")
	}
	if !v.Status.IsValid() {
		return fmt.Errorf("order status %q is invalid", v.Status)
	}
	return nil
}
