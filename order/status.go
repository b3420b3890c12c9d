// Copyright (c) 2025 Eternadex Authors

// Package order defines the order lifecycle types: the status state machine,
// the durable order record and the transition event variants published on the
// event bus.
package order

// Status identifies one stage of an order's execution pipeline. Statuses form
// a strict linear order and an order's status never moves backwards.
type Status string

const (
	Pending   Status = "pending"
	Routing   Status = "routing"
	Building  Status = "building"
	Submitted Status = "submitted"
	Confirmed Status = "confirmed"
	Failed    Status = "failed"
)

// statusRanks maps each status to its position in the pipeline. Confirmed and
// Failed share the final rank; only one of them can ever be reached.
var statusRanks = map[Status]int{
	Pending:   0,
	Routing:   1,
	Building:  2,
	Submitted: 3,
	Confirmed: 4,
	Failed:    4,
}

func (s Status) IsValid() bool {
	_, ok := statusRanks[s]
	return ok
}

// IsTerminal returns true for confirmed and failed. No mutation of the order
// is allowed after a terminal status.
func (s Status) IsTerminal() bool {
	return s == Confirmed || s == Failed
}

// CanAdvance returns true if an order currently at status s may record the
// next status. Repeating the current status is allowed (the routing stage
// emits more than one event) as long as s itself is not terminal.
func (s Status) CanAdvance(next Status) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return statusRanks[next] >= statusRanks[s]
}
