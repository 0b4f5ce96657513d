package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/holo-globe/internal/adapter/kafka"
	"github.com/signalsfoundry/holo-globe/internal/config"
	"github.com/signalsfoundry/holo-globe/internal/engine"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/internal/observability"
	"github.com/signalsfoundry/holo-globe/internal/perception"
	"github.com/signalsfoundry/holo-globe/internal/rpc"
	"github.com/signalsfoundry/holo-globe/kb"
	"github.com/signalsfoundry/holo-globe/timectrl"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before configuration")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the globe gRPC server listens on (overrides server.grpc_addr)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides server.metrics_addr)")
	regionsPath := flag.String("regions", "", "GeoJSON boundary dataset (overrides regions.path)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "globe-engine: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "globe-engine: %v\n", err)
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *regionsPath != "" {
		cfg.Regions.Path = *regionsPath
	}

	log := logging.New(cfg.Logging())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "globe engine exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the engine on lis until ctx is done.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewEngineCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingSettings(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	regions := loadRegions(ctx, log, cfg.Regions.Path)
	slot := engine.NewFrameSlot()

	sinks := engine.MultiSink{engine.LogSink{Log: log}}
	if cfg.Kafka.Enabled {
		publisher := kafka.NewClickPublisher(cfg.Kafka, log, collector)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn(context.Background(), "closing click publisher", logging.Err(err))
			}
		}()
		sinks = append(sinks, publisher)
		log.Info(ctx, "publishing clicks to kafka",
			logging.String("topic", cfg.Kafka.Topic),
			logging.Any("brokers", cfg.Kafka.Brokers),
		)
	}

	eng := engine.New(
		engine.WithLogger(log),
		engine.WithMetrics(collector),
		engine.WithRegions(regions),
		engine.WithFrames(slot),
		engine.WithPickSink(sinks),
		engine.WithOrbitConfig(cfg.Orbit()),
		engine.WithFocusConfig(cfg.Focus()),
		engine.WithHoverInterval(cfg.Engine.HoverInterval),
		engine.WithFOV(cfg.Engine.FOV),
		engine.WithDragListener(func(dragging bool) {
			log.Debug(context.Background(), "drag state changed", logging.Bool("dragging", dragging))
		}),
	)
	loop := engine.NewLoop(eng, 64, log)
	defer loop.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tc := timectrl.NewTimeController(nil, cfg.Engine.TickInterval, timectrl.RealTime)
	tc.AddListener(loop.Step)
	ticking := tc.Start(runCtx, 0)

	startPerception(runCtx, cfg.Perception, slot, loop, log)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.InteractionIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterGlobeServiceServer(server, rpc.NewGlobeService(loop, log))

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(lis) }()
	log.Info(ctx, "starting globe gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Duration("tick", cfg.Engine.TickInterval),
	)

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("serve gRPC: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down globe engine")
	server.GracefulStop()
	cancel()
	<-ticking

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

func serveMetrics(addr string, collector *observability.EngineCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// loadRegions reads the boundary dataset. A missing or broken dataset leaves
// the index empty so picks still report coordinates.
func loadRegions(ctx context.Context, log logging.Logger, path string) *kb.RegionIndex {
	if path == "" {
		log.Warn(ctx, "no boundary dataset configured; picks will carry coordinates only")
		return kb.NewRegionIndex()
	}

	ix, report, err := kb.LoadGeoJSONFile(path)
	if err != nil {
		log.Warn(ctx, "skipping boundary dataset", logging.String("path", path), logging.Err(err))
		return kb.NewRegionIndex()
	}
	for _, s := range report.Skipped {
		log.Debug(ctx, "skipped boundary feature", logging.Int("index", s.Index), logging.String("reason", s.Reason))
	}
	log.Info(ctx, "loaded boundary dataset",
		logging.String("path", path),
		logging.Int("regions", report.Loaded),
		logging.Int("skipped", len(report.Skipped)),
	)
	return ix
}

// startPerception starts the configured gesture source. Failures switch the
// engine to pointer-only input.
func startPerception(ctx context.Context, cfg config.PerceptionConfig, slot *engine.FrameSlot, loop *engine.Loop, log logging.Logger) {
	unavailable := func(ctx context.Context, acq *perception.AcquisitionError) {
		loop.Post(ctx, func(ctx context.Context, e *engine.Engine) {
			e.GestureUnavailable(ctx, string(acq.Kind), acq)
		})
	}

	switch cfg.Source {
	case "", "none":
		log.Info(ctx, "gesture input disabled")
		return
	case "replay":
	default:
		log.Warn(ctx, "unknown gesture source", logging.String("source", cfg.Source))
		return
	}

	src, err := perception.OpenReplay(cfg.ReplayPath, cfg.Loop)
	if err != nil {
		unavailable(ctx, perception.Classify(err))
		return
	}
	log.Info(ctx, "replaying gesture frames",
		logging.String("path", cfg.ReplayPath),
		logging.Int("frames", src.Len()),
		logging.Bool("loop", cfg.Loop),
	)

	poller := perception.NewPoller(src, slot, cfg.PollInterval,
		perception.WithPollerLogger(log),
		perception.WithFailureHandler(unavailable),
	)
	go func() {
		_ = poller.Run(ctx)
	}()
}
