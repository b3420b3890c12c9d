// Copyright (c) 2025 Eternadex Authors

// Package api defines the request/response types and handler paths of the
// order execution service.
package api

import (
	"github.com/shopspring/decimal"
)

const (
	// OrderExecutePath accepts new market orders.
	OrderExecutePath = "/api/orders/execute"

	// OrderGetPath returns the stored snapshot of an order.
	OrderGetPath = "/api/orders/get"

	// OrderWatchPathPrefix streams order updates over a websocket; the order
	// id follows the prefix.
	OrderWatchPathPrefix = "/ws/orders/"
)

type OrderExecuteRequest struct {
	TokenIn  string
	TokenOut string

	Amount decimal.Decimal
}

type OrderExecuteResponse struct {
	OrderID string

	Status string

	Message string
}

type OrderGetRequest struct {
	OrderID string
}

type OrderGetResponse struct {
	OrderID string

	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal

	Status string

	TxHash         string `json:",omitempty"`
	ExecutionPrice decimal.Decimal

	Logs []string `json:",omitempty"`

	CreatedAt string
}
