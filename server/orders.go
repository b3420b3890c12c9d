// Copyright (c) 2025 Eternadex Authors

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/queue"
)

// doExecute validates a market order request, persists the pending order and
// enqueues it for asynchronous execution. The order id is returned
// immediately; progress streams over the websocket endpoint.
func (s *Server) doExecute(ctx context.Context, req *api.OrderExecuteRequest) (*api.OrderExecuteResponse, error) {
	if err := req.Check(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, os.ErrInvalid)
	}

	v := order.New(req.TokenIn, req.TokenOut, req.Amount)
	if err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("could not create order: %w", err)
	}

	job := &queue.Job{
		OrderID:  v.ID,
		TokenIn:  v.TokenIn,
		TokenOut: v.TokenOut,
		Amount:   v.Amount,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("could not enqueue order %q: %w", v.ID, err)
	}

	slog.InfoContext(ctx, "accepted market order", "order", v.ID, "pair", v.TokenIn+"-"+v.TokenOut, "amount", v.Amount)
	resp := &api.OrderExecuteResponse{
		OrderID: v.ID,
		Status:  string(order.Pending),
		Message: "Order queued. Connect to WebSocket for updates.",
	}
	return resp, nil
}

func (s *Server) doGet(ctx context.Context, req *api.OrderGetRequest) (*api.OrderGetResponse, error) {
	if err := req.Check(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, os.ErrInvalid)
	}
	v, err := s.store.Find(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("could not find order %q: %w", req.OrderID, err)
	}
	resp := &api.OrderGetResponse{
		OrderID:        v.ID,
		TokenIn:        v.TokenIn,
		TokenOut:       v.TokenOut,
		Amount:         v.Amount,
		Status:         string(v.Status),
		TxHash:         v.TxHash,
		ExecutionPrice: v.ExecutionPrice,
		Logs:           v.Logs,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	return resp, nil
}
