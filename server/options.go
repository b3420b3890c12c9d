// Copyright (c) 2025 Eternadex Authors

package server

import (
	"time"

	"github.com/eternadex/swapd/bridge"
	"github.com/eternadex/swapd/queue"
)

type Options struct {
	// Queue configures the job queue's attempt budget, backoff, worker pool
	// and rate limit.
	Queue queue.Options

	// Bridge configures the streaming connections.
	Bridge bridge.Options

	// BuildDelay is the simulated transaction construction time before the
	// submitted transition.
	BuildDelay time.Duration
}

func (v *Options) setDefaults() {
	if v.BuildDelay == 0 {
		v.BuildDelay = 500 * time.Millisecond
	}
}
