// Package timectrl drives the frame clock of the interaction engine.
package timectrl

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Mode describes how the TimeController advances frame time.
type Mode int

const (
	// RealTime emits one frame per Tick of the underlying clock.
	RealTime Mode = iota
	// Accelerated steps frame time by Tick as fast as listeners allow. Used
	// for offline gesture replays.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController drives frame time and notifies registered listeners once
// per frame, always from the same goroutine.
type TimeController struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	frames      uint64

	listeners []func(time.Time)
}

// NewTimeController constructs a controller on clock. A nil clock uses
// real time.
func NewTimeController(clock clockwork.Clock, tick time.Duration, mode Mode) *TimeController {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	start := clock.Now()
	return &TimeController{
		clock:       clock,
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the time of the most recent frame.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime overrides the current frame time.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Frames returns the number of frames emitted so far.
func (tc *TimeController) Frames() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.frames
}

// AddListener registers a callback invoked on every frame. Listeners must
// be added before Start.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller in a separate goroutine until ctx is done or,
// when duration is positive, until that much frame time has elapsed. It
// returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.RLock()
		frameTime := tc.currentTime
		listeners := append([]func(time.Time){}, tc.listeners...)
		tc.mu.RUnlock()

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := tc.clock.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.Chan()
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}

			frameTime = frameTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = frameTime
			tc.frames++
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(frameTime)
			}
		}
	}()
	return done
}
