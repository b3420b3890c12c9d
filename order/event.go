// Copyright (c) 2025 Eternadex Authors

package order

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Event is the closed set of transition payloads published on an order's
// event bus channel. Events are plain in-memory values; they are serialized
// into JSON frames only at the streaming boundary and in the order log.
type Event interface {
	Status() Status
}

// RoutingEvent is emitted when quoting begins (Quotes nil) and again with the
// collected quotes and the textual venue decision.
type RoutingEvent struct {
	Message  string
	Quotes   map[string]decimal.Decimal
	Decision string
}

type BuildingEvent struct {
	Message string
}

type SubmittedEvent struct {
	Message string
}

type ConfirmedEvent struct {
	TxHash     string
	FinalPrice decimal.Decimal
	Message    string
}

type FailedEvent struct {
	Error string
}

func (RoutingEvent) Status() Status   { return Routing }
func (BuildingEvent) Status() Status  { return Building }
func (SubmittedEvent) Status() Status { return Submitted }
func (ConfirmedEvent) Status() Status { return Confirmed }
func (FailedEvent) Status() Status    { return Failed }

// EncodeFrame serializes an event into its wire frame, a single JSON object
// tagged with the status name.
func EncodeFrame(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case RoutingEvent:
		return json.Marshal(struct {
			Status   Status                     `json:"status"`
			Message  string                     `json:"message,omitempty"`
			Quotes   map[string]decimal.Decimal `json:"quotes,omitempty"`
			Decision string                     `json:"decision,omitempty"`
		}{Routing, v.Message, v.Quotes, v.Decision})
	case BuildingEvent:
		return json.Marshal(struct {
			Status  Status `json:"status"`
			Message string `json:"message"`
		}{Building, v.Message})
	case SubmittedEvent:
		return json.Marshal(struct {
			Status  Status `json:"status"`
			Message string `json:"message"`
		}{Submitted, v.Message})
	case ConfirmedEvent:
		return json.Marshal(struct {
			Status     Status          `json:"status"`
			TxHash     string          `json:"txHash"`
			FinalPrice decimal.Decimal `json:"finalPrice"`
			Message    string          `json:"message,omitempty"`
		}{Confirmed, v.TxHash, v.FinalPrice, v.Message})
	case FailedEvent:
		return json.Marshal(struct {
			Status Status `json:"status"`
			Error  string `json:"error"`
		}{Failed, v.Error})
	}
	return nil, fmt.Errorf("unknown event type %T", ev)
}
