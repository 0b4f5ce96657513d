package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/internal/engine"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/internal/perception"
	"github.com/signalsfoundry/holo-globe/kb"
	"github.com/signalsfoundry/holo-globe/model"
	"github.com/signalsfoundry/holo-globe/timectrl"
)

type simOptions struct {
	Duration time.Duration
	Tick     time.Duration
	Every    int

	Replay  perception.Source
	Regions core.RegionLookup

	Focus *model.Coordinates
	Click *[2]float64
}

type simSummary struct {
	Frames   uint64
	Controls map[model.ControlKind]int
	Final    engine.Snapshot
	Click    *model.PickResult
	ClickErr error
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "total simulated time")
	tick := flag.Duration("tick", 16*time.Millisecond, "frame interval")
	every := flag.Int("every", 30, "print the engine state every N frames (0 disables)")
	replayPath := flag.String("replay", "", "JSON-lines gesture recording replayed one frame per tick")
	loopReplay := flag.Bool("loop", false, "restart the recording when it ends")
	regionsPath := flag.String("regions", "", "GeoJSON boundary dataset")
	focus := flag.String("focus", "", "focus request issued at start, as lat,lng")
	click := flag.String("click", "", "click issued after the run, as x,y in an 800x600 viewport")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	opts := simOptions{Duration: *duration, Tick: *tick, Every: *every, Regions: kb.NewRegionIndex()}

	if *regionsPath != "" {
		ix, report, err := kb.LoadGeoJSONFile(*regionsPath)
		if err != nil {
			log.Error(ctx, "failed to load boundary dataset", logging.String("path", *regionsPath), logging.Err(err))
			os.Exit(1)
		}
		fmt.Printf("Loaded %d regions (%d skipped)\n", report.Loaded, len(report.Skipped))
		opts.Regions = ix
	}
	if *replayPath != "" {
		src, err := perception.OpenReplay(*replayPath, *loopReplay)
		if err != nil {
			log.Error(ctx, "failed to open gesture recording", logging.Err(err))
			os.Exit(1)
		}
		opts.Replay = src
	}
	if *focus != "" {
		lat, lng, err := parsePair(*focus)
		if err != nil {
			log.Error(ctx, "bad -focus", logging.Err(err))
			os.Exit(2)
		}
		opts.Focus = &model.Coordinates{Lat: lat, Lng: lng}
	}
	if *click != "" {
		x, y, err := parsePair(*click)
		if err != nil {
			log.Error(ctx, "bad -click", logging.Err(err))
			os.Exit(2)
		}
		opts.Click = &[2]float64{x, y}
	}

	fmt.Printf("Starting simulation: duration=%s, tick=%s, mode=%v\n", *duration, *tick, timectrl.Accelerated)
	sum, err := simulate(ctx, opts, log, os.Stdout)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
	printSummary(os.Stdout, sum)
	fmt.Println("Simulation complete.")
}

// simulate drives an engine in accelerated time: one recorded gesture frame
// per tick, an optional focus request up front and an optional click at the
// end.
func simulate(ctx context.Context, opts simOptions, log logging.Logger, out io.Writer) (simSummary, error) {
	if opts.Tick <= 0 || opts.Duration <= 0 {
		return simSummary{}, errors.New("tick and duration must be positive")
	}

	clock := clockwork.NewFakeClock()
	slot := engine.NewFrameSlot()
	eng := engine.New(
		engine.WithLogger(log),
		engine.WithClock(clock),
		engine.WithFrames(slot),
		engine.WithRegions(opts.Regions),
		engine.WithViewport(core.Viewport{Width: 800, Height: 600}),
	)
	loop := engine.NewLoop(eng, 4, log)
	defer loop.Close()

	if opts.Focus != nil {
		focus := *opts.Focus
		loop.Post(ctx, func(ctx context.Context, e *engine.Engine) {
			if _, err := e.Focus(ctx, focus.Lat, focus.Lng); err != nil {
				log.Warn(ctx, "focus rejected", logging.Err(err))
			}
		})
	}

	sum := simSummary{Controls: map[model.ControlKind]int{}}
	replay := opts.Replay
	tc := timectrl.NewTimeController(clock, opts.Tick, timectrl.Accelerated)
	tc.AddListener(func(simTime time.Time) {
		if replay != nil {
			f, err := replay.Next(ctx)
			switch {
			case err == nil:
				f.At = simTime
				slot.Store(f)
			case errors.Is(err, io.EOF):
				replay = nil
			default:
				log.Warn(ctx, "skipping gesture frame", logging.Err(err))
			}
		}
		clock.Advance(opts.Tick)
		loop.Step(simTime)

		s := loop.Snapshot()
		sum.Frames = s.Tick
		sum.Controls[s.Control.Kind]++
		if opts.Every > 0 && s.Tick%uint64(opts.Every) == 0 {
			printSnapshot(out, simTime.Sub(tc.StartTime), s)
		}
	})
	<-tc.Start(ctx, opts.Duration)

	if opts.Click != nil {
		x, y := opts.Click[0], opts.Click[1]
		queued := loop.Post(ctx, func(ctx context.Context, e *engine.Engine) {
			res, err := e.Click(ctx, x, y)
			if err != nil {
				sum.ClickErr = err
				return
			}
			sum.Click = &res
		})
		if !queued {
			return sum, errors.New("engine loop rejected the click")
		}
		loop.Step(tc.Now())
	}

	sum.Final = loop.Snapshot()
	return sum, nil
}

func printSnapshot(w io.Writer, at time.Duration, s engine.Snapshot) {
	focus := "-"
	if s.Focus != nil {
		focus = fmt.Sprintf("(%.2f, %.2f)", s.Focus.Coordinates.Lat, s.Focus.Coordinates.Lng)
	}
	fmt.Fprintf(w, "[%8s] frame=%-5d pitch=%+.3f yaw=%+.3f dist=%.2f control=%-6s gesture=%-9s focus=%s\n",
		at.Truncate(time.Millisecond), s.Tick,
		s.Orientation.Pitch, s.Orientation.Yaw, s.Distance,
		s.Control.Kind, s.Gesture.Phase, focus,
	)
}

func printSummary(w io.Writer, sum simSummary) {
	fmt.Fprintf(w, "Frames: %d (rotate=%d zoom=%d idle=%d)\n",
		sum.Frames,
		sum.Controls[model.ControlRotate],
		sum.Controls[model.ControlZoom],
		sum.Controls[model.ControlNone],
	)
	fmt.Fprintf(w, "Final orientation: pitch=%+.4f yaw=%+.4f roll=%+.4f distance=%.3f\n",
		sum.Final.Orientation.Pitch, sum.Final.Orientation.Yaw, sum.Final.Orientation.Roll, sum.Final.Distance)
	switch {
	case sum.ClickErr != nil:
		fmt.Fprintf(w, "Click: %v\n", sum.ClickErr)
	case sum.Click != nil:
		region := sum.Click.Region
		if !sum.Click.HasRegion {
			region = "(no region)"
		}
		fmt.Fprintf(w, "Click: (%.2f, %.2f) %s\n", sum.Click.Coordinates.Lat, sum.Click.Coordinates.Lng, region)
	}
}

func parsePair(s string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want two comma-separated numbers, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
