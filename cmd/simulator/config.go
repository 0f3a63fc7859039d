package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/spill-simulator/core"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
)

const envPrefix = "SPILLSIM"

// Config holds the resolved command line, environment and config file
// settings for a single invocation.
type Config struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	Rewind      bool

	// Scenario overrides. Zero values leave the scenario's own setting.
	Uncertain           *bool
	Strict              bool
	TolerateMissingRefs bool
	Duration            time.Duration
	TimeStep            time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("run.rewind", true)
	return v
}

// readConfigFile merges path into v. An empty path is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %q: %w", flag, err)
		}
	}
	return nil
}

func configFromViper(v *viper.Viper) Config {
	cfg := Config{
		LogLevel:            v.GetString("log.level"),
		LogFormat:           v.GetString("log.format"),
		MetricsAddr:         v.GetString("metrics.addr"),
		Rewind:              v.GetBool("run.rewind"),
		Strict:              v.GetBool("run.strict"),
		TolerateMissingRefs: v.GetBool("run.tolerate_missing_refs"),
		Duration:            v.GetDuration("run.duration"),
		TimeStep:            v.GetDuration("run.time_step"),
	}
	if v.IsSet("run.uncertain") {
		on := v.GetBool("run.uncertain")
		cfg.Uncertain = &on
	}
	return cfg
}

func (c Config) validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Duration < 0 || c.TimeStep < 0 {
		return fmt.Errorf("duration and time step overrides must not be negative")
	}
	return nil
}

func (c Config) logger() logging.Logger {
	return logging.New(logging.Config{Level: c.LogLevel, Format: c.LogFormat})
}

// modelOptions turns the overrides into options applied after the
// scenario's own settings.
func (c Config) modelOptions() []core.ModelOption {
	var opts []core.ModelOption
	if c.Uncertain != nil {
		opts = append(opts, core.WithUncertain(*c.Uncertain))
	}
	if c.Strict {
		opts = append(opts, core.WithStrict(true))
	}
	if c.TolerateMissingRefs {
		opts = append(opts, core.WithTolerateMissingRefs(true))
	}
	if c.Duration > 0 {
		opts = append(opts, core.WithDuration(c.Duration))
	}
	if c.TimeStep > 0 {
		opts = append(opts, core.WithTimeStep(c.TimeStep))
	}
	return opts
}
