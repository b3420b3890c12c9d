// Copyright (c) 2025 Eternadex Authors

// Package bridge implements the per-connection subscriber bridge: it
// reconciles a store snapshot with a live event bus subscription and streams
// both to one websocket client until a terminal event or disconnect.
//
// An event published between the snapshot read and the subscription open is
// missed by that connection. This race is inherent to snapshot+subscribe
// without a replay log; the store snapshot remains the durable record and a
// reconnect observes the final state.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eternadex/swapd/ctxutil"
	"github.com/eternadex/swapd/order"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

// Snapshotter is the slice of the order store consumed here.
type Snapshotter interface {
	Find(ctx context.Context, id string) (*order.Order, error)
}

// Subscriber is the slice of the event bus consumed here.
type Subscriber interface {
	Subscribe(orderID string) (*topic.Receiver[order.Event], error)
}

type Options struct {
	// GraceDelay is how long a connection stays open after a terminal status
	// is delivered, so the client can drain the final frame.
	GraceDelay time.Duration

	WriteTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.GraceDelay == 0 {
		v.GraceDelay = time.Second
	}
	if v.WriteTimeout == 0 {
		v.WriteTimeout = 10 * time.Second
	}
}

type Bridge struct {
	store Snapshotter
	bus   Subscriber

	opts Options

	upgrader websocket.Upgrader

	// pathPrefix is stripped from the request path to extract the order id.
	pathPrefix string

	// beforeSubscribe, when non-nil, runs between the snapshot read and the
	// subscription open. Tests use it to widen the race window.
	beforeSubscribe func()
}

func New(store Snapshotter, bus Subscriber, pathPrefix string, opts *Options) *Bridge {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Bridge{
		store:      store,
		bus:        bus,
		opts:       *opts,
		pathPrefix: pathPrefix,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimPrefix(r.URL.Path, b.pathPrefix)
	if len(orderID) == 0 || strings.Contains(orderID, "/") {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade websocket connection", "order", orderID, "err", err)
		return
	}
	defer conn.Close()

	b.serve(r.Context(), conn, orderID)
}

// serve owns exactly one subscription for the lifetime of one connection and
// releases it on every exit path.
func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn, orderID string) {
	ack := connectedFrame{
		Status:  "connected",
		Message: fmt.Sprintf("Listening for updates on order %s", orderID),
	}
	if err := b.writeJSON(conn, ack); err != nil {
		return
	}

	terminal, err := b.sendSnapshot(ctx, conn, orderID)
	if err != nil {
		return
	}
	if terminal {
		// Already settled; no subscription is opened.
		ctxutil.Sleep(ctx, b.opts.GraceDelay)
		b.writeClose(conn)
		return
	}

	if b.beforeSubscribe != nil {
		b.beforeSubscribe()
	}

	recv, err := b.bus.Subscribe(orderID)
	if err != nil {
		slog.ErrorContext(ctx, "could not subscribe to order updates", "order", orderID, "err", err)
		b.writeJSON(conn, errorFrame{Status: "error", Message: "Failed to connect to updates"})
		return
	}
	defer recv.Close()

	eventCh, err := topic.ReceiveCh(recv)
	if err != nil {
		slog.ErrorContext(ctx, "could not open receive channel", "order", orderID, "err", err)
		b.writeJSON(conn, errorFrame{Status: "error", Message: "Failed to connect to updates"})
		return
	}

	// The read pump only detects client disconnects; clients are not expected
	// to send data frames. It unblocks when the deferred conn.Close runs.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-clientGone:
			return
		case ev := <-eventCh:
			data, err := order.EncodeFrame(ev)
			if err != nil {
				slog.ErrorContext(ctx, "could not encode event frame (skipped)", "order", orderID, "err", err)
				continue
			}
			if err := b.write(conn, data); err != nil {
				return
			}
			if ev.Status().IsTerminal() {
				ctxutil.Sleep(ctx, b.opts.GraceDelay)
				b.writeClose(conn)
				return
			}
		}
	}
}

// sendSnapshot reports the stored state of the order, if any. Returns true
// when the snapshot status is terminal.
func (b *Bridge) sendSnapshot(ctx context.Context, conn *websocket.Conn, orderID string) (bool, error) {
	snap, err := b.store.Find(ctx, orderID)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.ErrorContext(ctx, "could not read order snapshot (ignored)", "order", orderID, "err", err)
		}
		return false, nil
	}

	frame := snapshotFrame{
		Status:  snap.Status,
		Message: "Current order status",
		TxHash:  snap.TxHash,
		Logs:    snap.Logs,
	}
	if !snap.ExecutionPrice.IsZero() {
		price := snap.ExecutionPrice
		frame.ExecutionPrice = &price
	}
	if err := b.writeJSON(conn, frame); err != nil {
		return false, err
	}
	return snap.Status.IsTerminal(), nil
}

func (b *Bridge) write(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bridge) writeJSON(conn *websocket.Conn, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.write(conn, data)
}

func (b *Bridge) writeClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	conn.WriteMessage(websocket.CloseMessage, msg)
}

type connectedFrame struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorFrame struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type snapshotFrame struct {
	Status         order.Status     `json:"status"`
	Message        string           `json:"message"`
	TxHash         string           `json:"txHash,omitempty"`
	ExecutionPrice *decimal.Decimal `json:"executionPrice,omitempty"`
	Logs           []string         `json:"logs,omitempty"`
}
