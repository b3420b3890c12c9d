// Copyright (c) 2025 Eternadex Authors

// Package store implements the durable order store over a kv.Database. Each
// order is one gob-encoded record under the "/orders/" keyspace; updates are
// coalescing and the status can only move forward.
package store

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/bvkgo/kv"
	"github.com/eternadex/swapd/gobs"
	"github.com/eternadex/swapd/kvutil"
	"github.com/eternadex/swapd/order"
	"github.com/shopspring/decimal"
)

const Keyspace = "/orders/"

type Store struct {
	db kv.Database
}

func New(db kv.Database) *Store {
	return &Store{db: db}
}

func orderKey(id string) string {
	return path.Join(Keyspace, id)
}

// Update carries the optional fields of a status transition. Empty TxHash and
// nil Price leave the previously stored values untouched.
type Update struct {
	Status   order.Status
	LogEntry string
	TxHash   string
	Price    *decimal.Decimal
}

// Create persists a new pending order. Returns os.ErrExist if an order with
// the same id is already present.
func (s *Store) Create(ctx context.Context, v *order.Order) error {
	if err := v.Check(); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		key := orderKey(v.ID)
		if _, err := rw.Get(ctx, key); err == nil {
			return fmt.Errorf("order %q already exists: %w", v.ID, os.ErrExist)
		}
		return kvutil.Set(ctx, rw, key, toGob(v))
	}
	if err := kv.WithReadWriter(ctx, s.db, create); err != nil {
		return fmt.Errorf("could not create order %q: %w", v.ID, err)
	}
	return nil
}

// UpdateStatus records one status transition: it overwrites the status,
// appends the serialized payload to the order log and coalesces the optional
// transaction hash and execution price fields. Backward transitions and
// mutations of a terminal order are rejected with os.ErrInvalid.
func (s *Store) UpdateStatus(ctx context.Context, id string, u *Update) error {
	update := func(ctx context.Context, rw kv.ReadWriter) error {
		key := orderKey(id)
		od, err := kvutil.Get[gobs.OrderData](ctx, rw, key)
		if err != nil {
			return err
		}
		cur := order.Status(od.Status)
		if !cur.CanAdvance(u.Status) {
			return fmt.Errorf("order %q cannot move from %q to %q: %w", id, cur, u.Status, os.ErrInvalid)
		}
		od.Status = string(u.Status)
		if len(u.LogEntry) != 0 {
			od.Logs = append(od.Logs, u.LogEntry)
		}
		if len(u.TxHash) != 0 {
			od.TxHash = u.TxHash
		}
		if u.Price != nil {
			od.ExecutionPrice = *u.Price
		}
		return kvutil.Set(ctx, rw, key, od)
	}
	if err := kv.WithReadWriter(ctx, s.db, update); err != nil {
		return fmt.Errorf("could not update order %q: %w", id, err)
	}
	return nil
}

// Find returns the current snapshot of an order. Returns os.ErrNotExist if no
// order with the id was ever created.
func (s *Store) Find(ctx context.Context, id string) (*order.Order, error) {
	od, err := kvutil.GetDB[gobs.OrderData](ctx, s.db, orderKey(id))
	if err != nil {
		return nil, err
	}
	return fromGob(od), nil
}

func toGob(v *order.Order) *gobs.OrderData {
	return &gobs.OrderData{
		ID:             v.ID,
		TokenIn:        v.TokenIn,
		TokenOut:       v.TokenOut,
		Amount:         v.Amount,
		Status:         string(v.Status),
		TxHash:         v.TxHash,
		ExecutionPrice: v.ExecutionPrice,
		Logs:           v.Logs,
		CreatedAt:      v.CreatedAt,
	}
}

func fromGob(v *gobs.OrderData) *order.Order {
	return &order.Order{
		ID:             v.ID,
		TokenIn:        v.TokenIn,
		TokenOut:       v.TokenOut,
		Amount:         v.Amount,
		Status:         order.Status(v.Status),
		TxHash:         v.TxHash,
		ExecutionPrice: v.ExecutionPrice,
		Logs:           v.Logs,
		CreatedAt:      v.CreatedAt,
	}
}
