// Copyright (c) 2025 Eternadex Authors

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueueJob is a pending work item, stored under the "/queue/jobs/" keyspace
// until the job succeeds or exhausts its attempt budget.
type QueueJob struct {
	OrderID string

	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal

	// Attempts counts the attempts made so far.
	Attempts int

	// NotBefore is the earliest time the next attempt may start. Zero means
	// immediately.
	NotBefore time.Time

	// LastError holds the failure message of the most recent attempt.
	LastError string

	CreatedAt time.Time
}
