package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/holo-globe/internal/config"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/internal/rpc"
)

const squareDataset = `{"type":"FeatureCollection","features":[
  {"type":"Feature","id":"EQB","properties":{"name":"Equator Box"},
   "geometry":{"type":"Polygon","coordinates":[[[-30,-30],[30,-30],[30,30],[-30,30],[-30,-30]]]}}
]}`

func testConfig(t *testing.T, lis net.Listener) config.Config {
	t.Helper()
	t.Setenv(config.EnvPrefix+"_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	regions := filepath.Join(t.TempDir(), "regions.geojson")
	require.NoError(t, os.WriteFile(regions, []byte(squareDataset), 0o600))

	cfg.Server.GRPCAddr = lis.Addr().String()
	cfg.Server.MetricsAddr = ""
	cfg.Tracing.Enabled = false
	cfg.Engine.TickInterval = 5 * time.Millisecond
	cfg.Regions.Path = regions
	cfg.Log.Level = "warn"
	return cfg
}

func TestGlobeEngineStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg := testConfig(t, lis)
	log := logging.New(cfg.Logging())

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.Server.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := rpc.NewClient(conn)

	_, err = client.SetViewport(ctx, 0, 0, 800, 600)
	require.NoError(t, err)

	resp, err := client.Click(ctx, 400, 300)
	require.NoError(t, err)
	assert.Equal(t, "Equator Box", resp.GetFields()["region"].GetStringValue())

	state, err := client.GetState(ctx)
	require.NoError(t, err)
	assert.NotNil(t, state.GetFields()["marker"])

	cancel()
	require.NoError(t, <-errCh)
}

func TestGlobeEngineReplayFailureKeepsServing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg := testConfig(t, lis)
	cfg.Perception.Source = "replay"
	cfg.Perception.ReplayPath = filepath.Join(t.TempDir(), "missing.jsonl")

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, logging.Noop(), lis)
	}()

	conn, err := grpc.NewClient(cfg.Server.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := rpc.NewClient(conn).Wheel(ctx, -200)
	require.NoError(t, err)
	assert.InDelta(t, 2.2, resp.GetFields()["distance"].GetNumberValue(), 1e-12)

	cancel()
	require.NoError(t, <-errCh)
}
