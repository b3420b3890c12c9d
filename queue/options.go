// Copyright (c) 2025 Eternadex Authors

package queue

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// Concurrency bounds the number of jobs executing at the same time.
	Concurrency int

	// MaxAttempts is the total attempt budget per job, including the first
	// attempt.
	MaxAttempts int

	// BackoffBase is the delay before the second attempt; it doubles for every
	// attempt after that.
	BackoffBase time.Duration

	// RateLimit caps job executions per RatePeriod across all workers, to
	// bound downstream load on the venues.
	RateLimit  int
	RatePeriod time.Duration
}

func (v *Options) setDefaults() {
	if v.Concurrency == 0 {
		v.Concurrency = 10
	}
	if v.MaxAttempts == 0 {
		v.MaxAttempts = 3
	}
	if v.BackoffBase == 0 {
		v.BackoffBase = time.Second
	}
	if v.RateLimit == 0 {
		v.RateLimit = 100
	}
	if v.RatePeriod == 0 {
		v.RatePeriod = time.Minute
	}
}

func (v *Options) Check() error {
	if v.Concurrency < 0 || v.MaxAttempts < 0 || v.RateLimit < 0 {
		return fmt.Errorf("queue options cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
