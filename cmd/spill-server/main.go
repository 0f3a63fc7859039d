// Command spill-server runs a scenario in the background and exposes its
// progress through gRPC health checks and Prometheus metrics.
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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/signalsfoundry/spill-simulator/core"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/internal/observability"
)

// runServiceName is the health service that reflects the scenario run.
// It reports NOT_SERVING until the first run completes successfully.
const runServiceName = "spillsim.v1.Run"

// Config controls a server instance.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	ScenarioPath   string
	// RerunInterval repeats the scenario on this period. Zero runs it once.
	RerunInterval time.Duration
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", envOr("SPILLSIM_GRPC_ADDR", ":50051"), "TCP address the gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", envOr("SPILLSIM_METRICS_ADDR", ":9090"), "HTTP address for Prometheus /metrics")
	flag.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "json"), "log format: text or json")
	flag.StringVar(&cfg.ScenarioPath, "scenario", envOr("SPILLSIM_SCENARIO", ""), "path to a JSON scenario")
	flag.DurationVar(&cfg.RerunInterval, "rerun-interval", 0, "repeat the scenario on this interval")
	flag.Parse()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves gRPC on lis until ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if cfg.ScenarioPath == "" {
		return errors.New("no scenario configured")
	}
	if log == nil {
		log = logging.Noop()
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewServerCollector(reg)
	if err != nil {
		return fmt.Errorf("server metrics: %w", err)
	}
	modelMetrics, err := observability.NewModelCollector(reg)
	if err != nil {
		return fmt.Errorf("model metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(runServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(collector.UnaryServerInterceptor()),
	)
	healthpb.RegisterHealthServer(server, healthSrv)
	reflection.Register(server)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting gRPC server", logging.String("addr", lis.Addr().String()))
	go func() {
		serveErr <- server.Serve(lis)
	}()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runLoop(loopCtx, cfg, log, collector, modelMetrics, healthSrv)
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		result = err
	}

	log.Info(context.Background(), "shutting down spill server")
	cancelLoop()
	<-loopDone
	healthSrv.Shutdown()
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

// runLoop runs the scenario once, then again on every tick of
// cfg.RerunInterval until ctx is cancelled.
func runLoop(ctx context.Context, cfg Config, log logging.Logger, collector *observability.ServerCollector, metrics *observability.ModelCollector, healthSrv *health.Server) {
	runOnce(ctx, cfg, log, collector, metrics, healthSrv)
	if cfg.RerunInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.RerunInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, cfg, log, collector, metrics, healthSrv)
		}
	}
}

func runOnce(ctx context.Context, cfg Config, log logging.Logger, collector *observability.ServerCollector, metrics *observability.ModelCollector, healthSrv *health.Server) {
	ctx, runLog := logging.WithRunLogger(ctx, log)

	collector.RunStarted()
	err := runScenario(ctx, cfg.ScenarioPath, runLog, metrics)
	collector.RunFinished(err)

	switch {
	case err == nil:
		healthSrv.SetServingStatus(runServiceName, healthpb.HealthCheckResponse_SERVING)
	case errors.Is(err, context.Canceled):
		runLog.Info(ctx, "scenario run cancelled")
	default:
		runLog.Error(ctx, "scenario run failed", logging.Err(err))
		healthSrv.SetServingStatus(runServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

func runScenario(ctx context.Context, path string, log logging.Logger, metrics *observability.ModelCollector) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()

	m, err := core.LoadScenario(f, core.WithLogger(log), core.WithMetricsRecorder(metrics))
	if err != nil {
		return fmt.Errorf("load scenario %q: %w", path, err)
	}
	outs, err := m.FullRun(ctx, true)
	if err != nil {
		return err
	}
	log.Info(ctx, "scenario run finished", logging.String("model", m.Name()), logging.Int("steps", len(outs)))
	return nil
}

func serveMetrics(addr string, collector *observability.ServerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
