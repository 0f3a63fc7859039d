// Command simulator runs an oil spill scenario described by a JSON file
// and reports the model's validation messages and per-step progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/spill-simulator/core"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/internal/observability"
	"github.com/signalsfoundry/spill-simulator/model"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := newViper()
	var configFile string

	root := &cobra.Command{
		Use:          "simulator",
		Short:        "Run oil spill trajectory and weathering scenarios.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional configuration file (yaml, toml or json)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	cobra.CheckErr(bindFlags(v, root.PersistentFlags(), map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	}))

	root.AddCommand(newRunCmd(v), newValidateCmd(v), newVersionCmd())
	return root
}

// overrideKeys maps viper keys to the flags shared by run and validate.
// They are bound when a command runs so the two commands do not share a
// binding.
var overrideKeys = map[string]string{
	"run.uncertain":             "uncertain",
	"run.strict":                "strict",
	"run.tolerate_missing_refs": "tolerate-missing-refs",
	"run.duration":              "duration",
	"run.time_step":             "time-step",
}

func addOverrideFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("uncertain", false, "run the uncertain realization alongside the forecast")
	flags.Bool("strict", false, "treat a run with every spill after the end as invalid")
	flags.Bool("tolerate-missing-refs", false, "report missing environment objects as warnings")
	flags.Duration("duration", 0, "override the scenario duration")
	flags.Duration("time-step", 0, "override the scenario time step")
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run SCENARIO",
		Short: "Run a scenario to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags(), overrideKeys); err != nil {
				return err
			}
			if err := bindFlags(v, cmd.Flags(), map[string]string{
				"metrics.addr": "metrics-addr",
				"run.rewind":   "rewind",
			}); err != nil {
				return err
			}
			cfg := configFromViper(v)
			if err := cfg.validate(); err != nil {
				return err
			}
			return runScenario(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
	addOverrideFlags(cmd)
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().Bool("rewind", true, "rewind the model before running")
	return cmd
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate SCENARIO",
		Short: "Load a scenario and report its input checks without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags(), overrideKeys); err != nil {
				return err
			}
			cfg := configFromViper(v)
			if err := cfg.validate(); err != nil {
				return err
			}
			return validateScenario(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
	addOverrideFlags(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the simulator version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simulator %s\n", version)
		},
	}
}

func loadModel(path string, opts ...core.ModelOption) (*core.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()

	m, err := core.LoadScenario(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", path, err)
	}
	return m, nil
}

func runScenario(ctx context.Context, cfg Config, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.logger()
	ctx, log = logging.WithRunLogger(ctx, log)

	tracing := observability.TracingConfigFromEnv()
	tracing.Version = version
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewModelCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if srv := serveMetrics(cfg.MetricsAddr, collector, log); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := append(cfg.modelOptions(), core.WithLogger(log), core.WithMetricsRecorder(collector))
	m, err := loadModel(path, opts...)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", path), logging.Err(err))
		return err
	}

	log.Info(ctx, "starting model run",
		logging.String("model", m.Name()),
		logging.Time("start", m.StartTime()),
		logging.Duration("duration", m.Duration()),
		logging.Int("steps", m.NumTimeSteps()),
	)

	started := time.Now()
	outs, err := m.FullRun(ctx, cfg.Rewind)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		printMessages(out, verr.Messages)
	}
	if err != nil {
		log.Error(ctx, "model run failed", logging.Int("completed_steps", len(outs)), logging.Err(err))
		return err
	}

	fmt.Fprintf(out, "%s: completed %d steps in %s\n", m.Name(), len(outs), time.Since(started).Round(time.Millisecond))
	return nil
}

func validateScenario(ctx context.Context, cfg Config, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.logger()

	m, err := loadModel(path, append(cfg.modelOptions(), core.WithLogger(log))...)
	if err != nil {
		return err
	}

	report := m.ResolveReferences()
	for _, a := range report.Attached {
		log.Debug(ctx, "attached default reference", logging.Any("attachment", a))
	}

	msgs, valid, err := m.CheckInputs()
	printMessages(out, msgs)
	if err != nil {
		return err
	}
	if !valid {
		return &core.ValidationError{Messages: msgs}
	}
	fmt.Fprintf(out, "%s: valid (%d messages)\n", m.Name(), len(msgs))
	return nil
}

func printMessages(out io.Writer, msgs []model.Message) {
	for _, msg := range msgs {
		fmt.Fprintln(out, msg.String())
	}
}

func serveMetrics(addr string, collector *observability.ModelCollector, log logging.Logger) *http.Server {
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
