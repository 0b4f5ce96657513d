package perception

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/model"
)

// FrameWriter accepts the latest gesture frame. engine.FrameSlot implements
// it.
type FrameWriter interface {
	Store(model.GestureFrame) uint64
}

// FailureFunc is told once when acquisition stops for good.
type FailureFunc func(ctx context.Context, err *AcquisitionError)

// Poller pulls frames from a Source at a fixed interval and hands them to a
// FrameWriter. It runs on its own goroutine, apart from the engine loop.
type Poller struct {
	src      Source
	out      FrameWriter
	clock    clockwork.Clock
	interval time.Duration
	log      logging.Logger
	onFail   FailureFunc
}

// PollerOption customises a Poller.
type PollerOption func(*Poller)

// WithPollerClock sets the clock driving the poll ticker.
func WithPollerClock(c clockwork.Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(l logging.Logger) PollerOption {
	return func(p *Poller) { p.log = l }
}

// WithFailureHandler registers the callback run when acquisition fails.
func WithFailureHandler(fn FailureFunc) PollerOption {
	return func(p *Poller) { p.onFail = fn }
}

// NewPoller constructs a poller reading src every interval.
func NewPoller(src Source, out FrameWriter, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	p := &Poller{src: src, out: out, interval: interval}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	p.log = logging.OrNoop(p.log)
	return p
}

// Run polls until ctx is done or the source ends. Malformed frames are
// logged and skipped. Any other source error stops polling, is reported to
// the failure handler and returned as an *AcquisitionError. An exhausted
// source returns nil.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info(ctx, "gesture polling started", logging.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Info(ctx, "gesture polling stopped", logging.Err(ctx.Err()))
			return nil
		case <-ticker.Chan():
		}

		frame, err := p.src.Next(ctx)
		switch {
		case err == nil:
			if frame.At.IsZero() {
				frame.At = p.clock.Now()
			}
			p.out.Store(frame)
		case errors.Is(err, io.EOF):
			p.log.Info(ctx, "gesture source exhausted")
			return nil
		case errors.Is(err, ErrMalformedFrame):
			p.log.Warn(ctx, "skipping gesture frame", logging.Err(err))
		case ctx.Err() != nil:
			return nil
		default:
			acq := Classify(err)
			p.log.Error(ctx, "gesture acquisition failed",
				logging.String("kind", string(acq.Kind)),
				logging.Err(err),
			)
			if p.onFail != nil {
				p.onFail(ctx, acq)
			}
			return acq
		}
	}
}
