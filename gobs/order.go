// Copyright (c) 2025 Eternadex Authors

// Package gobs holds the gob-encoded record types persisted in the key-value
// database. Types in this package must stay backward compatible; add new
// fields instead of changing or removing existing ones.
package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderData is the durable snapshot of one order, stored under the
// "/orders/" keyspace.
type OrderData struct {
	ID string

	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal

	Status string

	TxHash         string
	ExecutionPrice decimal.Decimal

	Logs []string

	CreatedAt time.Time
}
