// Copyright (c) 2025 Eternadex Authors

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/queue"
	"github.com/eternadex/swapd/router"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type fakeVenue struct {
	name  string
	quote decimal.Decimal

	executeErr error
}

func (v *fakeVenue) Name() string { return v.name }

func (v *fakeVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	return v.quote, nil
}

func (v *fakeVenue) Execute(ctx context.Context, orderID string, price decimal.Decimal) (*router.Execution, error) {
	if v.executeErr != nil {
		return nil, v.executeErr
	}
	return &router.Execution{TxHash: "tx_" + v.name, Price: price}, nil
}

func newTestServer(t *testing.T, venues ...router.Venue) (*Server, *httptest.Server) {
	t.Helper()
	ctx := context.Background()

	opts := &Options{
		Queue: queue.Options{
			Concurrency: 2,
			MaxAttempts: 3,
			BackoffBase: time.Millisecond,
		},
		BuildDelay: time.Millisecond,
	}
	s, err := New(ctx, kvmemdb.New(), venues, nil /* secrets */, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	mux := http.NewServeMux()
	for k, v := range s.HandlerMap() {
		mux.Handle(k, v)
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON[RESP any](t *testing.T, ts *httptest.Server, subpath string, req any) (*RESP, *http.Response) {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+subpath, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp
	}
	v := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
	return v, resp
}

func waitForStatus(t *testing.T, ts *httptest.Server, orderID string, want order.Status) *api.OrderGetResponse {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		got, resp := postJSON[api.OrderGetResponse](t, ts, api.OrderGetPath, &api.OrderGetRequest{OrderID: orderID})
		if got == nil {
			t.Fatalf("order get failed with status %d", resp.StatusCode)
		}
		if got.Status == string(want) {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("order %q never reached %v", orderID, want)
	return nil
}

func TestExecuteOrderEndToEnd(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	meteora := &fakeVenue{name: "meteora", quote: decimal.NewFromInt(985)}
	_, ts := newTestServer(t, raydium, meteora)

	req := &api.OrderExecuteRequest{
		TokenIn:  "SOL",
		TokenOut: "USDC",
		Amount:   decimal.NewFromInt(10),
	}
	got, resp := postJSON[api.OrderExecuteResponse](t, ts, api.OrderExecutePath, req)
	if got == nil {
		t.Fatalf("order execute failed with status %d", resp.StatusCode)
	}
	if got.Status != string(order.Pending) {
		t.Fatalf("intake must return pending, got %q", got.Status)
	}
	if len(got.OrderID) == 0 {
		t.Fatalf("intake must return the order id")
	}

	final := waitForStatus(t, ts, got.OrderID, order.Confirmed)
	if final.TxHash != "tx_raydium" {
		t.Fatalf("best venue must execute, got %q", final.TxHash)
	}
	if !final.ExecutionPrice.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("unexpected execution price %v", final.ExecutionPrice)
	}
	if len(final.Logs) == 0 {
		t.Fatalf("confirmed order must carry its transition log")
	}
}

func TestOrderFailsAfterAttemptsExhausted(t *testing.T) {
	raydium := &fakeVenue{
		name:       "raydium",
		quote:      decimal.NewFromInt(990),
		executeErr: fmt.Errorf("simulated rpc timeout"),
	}
	_, ts := newTestServer(t, raydium)

	req := &api.OrderExecuteRequest{
		TokenIn:  "SOL",
		TokenOut: "USDC",
		Amount:   decimal.NewFromInt(10),
	}
	got, _ := postJSON[api.OrderExecuteResponse](t, ts, api.OrderExecutePath, req)
	if got == nil {
		t.Fatalf("order execute failed")
	}

	final := waitForStatus(t, ts, got.OrderID, order.Failed)
	if len(final.TxHash) != 0 {
		t.Fatalf("failed order must not carry a tx hash")
	}
}

func TestExecuteValidation(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	_, ts := newTestServer(t, raydium)

	bad := []*api.OrderExecuteRequest{
		{TokenIn: "", TokenOut: "USDC", Amount: decimal.NewFromInt(10)},
		{TokenIn: "SOL", TokenOut: "SOL", Amount: decimal.NewFromInt(10)},
		{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(-1)},
		{TokenIn: "SOL", TokenOut: "USDC"},
	}
	for _, req := range bad {
		if got, resp := postJSON[api.OrderExecuteResponse](t, ts, api.OrderExecutePath, req); got != nil {
			t.Fatalf("invalid request %+v was accepted", req)
		} else if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("want 400 for %+v, got %d", req, resp.StatusCode)
		}
	}
}

func TestGetUnknownOrder(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	_, ts := newTestServer(t, raydium)

	req := &api.OrderGetRequest{OrderID: "no-such-order"}
	if got, resp := postJSON[api.OrderGetResponse](t, ts, api.OrderGetPath, req); got != nil {
		t.Fatalf("unknown order returned a response")
	} else if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	_, ts := newTestServer(t, raydium)

	resp, err := http.Get(ts.URL + api.OrderExecutePath)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	_, ts := newTestServer(t, raydium)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	m := make(map[string]string)
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if m["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", m)
	}

	notFound, err := http.Get(ts.URL + "/no-such-path")
	if err != nil {
		t.Fatal(err)
	}
	notFound.Body.Close()
	if notFound.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 for unknown path, got %d", notFound.StatusCode)
	}
}

func TestWatchStreamsUntilTerminal(t *testing.T) {
	raydium := &fakeVenue{name: "raydium", quote: decimal.NewFromInt(990)}
	_, ts := newTestServer(t, raydium)

	req := &api.OrderExecuteRequest{
		TokenIn:  "SOL",
		TokenOut: "USDC",
		Amount:   decimal.NewFromInt(10),
	}
	got, _ := postJSON[api.OrderExecuteResponse](t, ts, api.OrderExecutePath, req)
	if got == nil {
		t.Fatalf("order execute failed")
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + api.OrderWatchPathPrefix + got.OrderID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The pipeline races the watcher: every observed status must move
	// forward, and either the snapshot or a live frame reports confirmed.
	sawConfirmed := false
	lastRank := -1
	ranks := map[string]int{
		"connected": -1, "pending": 0, "routing": 1,
		"building": 2, "submitted": 3, "confirmed": 4, "failed": 4,
	}
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("connection ended without a normal close: %v", err)
			}
			break
		}
		m := make(map[string]any)
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("frame is not valid json: %v", err)
		}
		status, _ := m["status"].(string)
		rank, ok := ranks[status]
		if !ok {
			t.Fatalf("unknown status frame %v", m)
		}
		if rank < lastRank {
			t.Fatalf("status moved backwards: %v after rank %d", m, lastRank)
		}
		lastRank = rank
		if status == "confirmed" {
			sawConfirmed = true
		}
	}
	if !sawConfirmed {
		// The stream can miss a terminal event published between the snapshot
		// read and the subscription open; the store still has the final state.
		final := waitForStatus(t, ts, got.OrderID, order.Confirmed)
		if final.Status != string(order.Confirmed) {
			t.Fatalf("order never confirmed")
		}
	}
}
