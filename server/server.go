// Copyright (c) 2025 Eternadex Authors

// Package server wires the order execution service together: the intake
// handlers, the durable order store and job queue, the execution engine, the
// notifier, the event bus and the websocket subscriber bridge.
package server

import (
	"context"
	"net/http"

	"github.com/bvkgo/kv"
	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/bridge"
	"github.com/eternadex/swapd/bus"
	"github.com/eternadex/swapd/engine"
	"github.com/eternadex/swapd/notify"
	"github.com/eternadex/swapd/queue"
	"github.com/eternadex/swapd/router"
	"github.com/eternadex/swapd/store"
	"github.com/eternadex/swapd/telegram"
)

type Server struct {
	db kv.Database

	store  *store.Store
	queue  *queue.Queue
	bus    *bus.Bus
	engine *engine.Engine
	bridge *bridge.Bridge

	notifier *notify.Notifier

	alerter *telegram.Client

	opts Options
}

// New creates the service around an opened database and a set of execution
// venues. Collaborators are constructed once here and passed down explicitly;
// nothing reaches them through globals.
func New(ctx context.Context, db kv.Database, venues []router.Venue, secrets *Secrets, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	rt, err := router.New(venues...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:   db,
		opts: *opts,
	}

	if secrets != nil && secrets.Telegram != nil {
		alerter, err := telegram.New(ctx, secrets.Telegram)
		if err != nil {
			return nil, err
		}
		s.alerter = alerter
	}

	s.store = store.New(db)
	s.bus = bus.New()

	var alerter notify.Alerter
	if s.alerter != nil {
		alerter = s.alerter
	}
	s.notifier = notify.New(s.store, s.bus, alerter)

	s.engine = engine.New(rt, s.notifier, opts.BuildDelay)

	q, err := queue.New(db, &opts.Queue)
	if err != nil {
		return nil, err
	}
	s.queue = q

	s.bridge = bridge.New(s.store, s.bus, api.OrderWatchPathPrefix, &opts.Bridge)
	return s, nil
}

// Start begins draining the job queue; jobs left over from a previous run
// resume automatically.
func (s *Server) Start(ctx context.Context) error {
	return s.queue.Start(s.engine.Execute, s.engine.Fail)
}

func (s *Server) Close() error {
	s.queue.Close()
	if s.alerter != nil {
		s.alerter.Close(context.Background())
	}
	return nil
}

// HandlerMap returns the http handlers exported by this service.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.OrderExecutePath:     httpPostJSONHandler(s.doExecute),
		api.OrderGetPath:         httpPostJSONHandler(s.doGet),
		api.OrderWatchPathPrefix: s.bridge,
		"/": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("content-type", "application/json")
			w.Write([]byte(`{"message":"System is running","status":"ok"}`))
		}),
	}
}
