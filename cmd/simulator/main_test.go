package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/spill-simulator/core"
)

const testScenario = `{
  "name": "jetty",
  "start_time": "2026-03-01T00:00:00Z",
  "duration": "3h",
  "time_step": "1h",
  "environment": [
    {"id": "wind-1", "type": "wind", "speed": 4, "direction": 180},
    {"id": "water-1", "type": "water", "temperature": 290, "salinity": 30}
  ],
  "movers": [{"type": "wind"}],
  "weatherers": [{"type": "evaporation"}],
  "outputters": [{"type": "weathering"}],
  "spills": [
    {
      "name": "hose",
      "release_time": "%RELEASE%",
      "amount": 500,
      "num_elements": 10,
      "position": {"lon": 1, "lat": 1, "z": 0},
      "substance": {
        "name": "diesel",
        "density": 840,
        "components": [
          {"name": "light", "mass_fraction": 0.5, "molecular_weight": 150, "vapor_pressure": 800},
          {"name": "heavy", "mass_fraction": 0.5, "molecular_weight": 400, "vapor_pressure": 0}
        ]
      }
    }
  ]
}`

func writeScenario(t *testing.T, release string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	body := strings.Replace(testScenario, "%RELEASE%", release, 1)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandCompletes(t *testing.T) {
	path := writeScenario(t, "2026-03-01T00:00:00Z")
	out, err := execute(t, "run", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "jetty: completed 4 steps") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunCommandDurationOverride(t *testing.T) {
	path := writeScenario(t, "2026-03-01T00:00:00Z")
	out, err := execute(t, "run", path, "--duration", "1h")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed 2 steps") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunCommandReadsConfigFile(t *testing.T) {
	path := writeScenario(t, "2026-03-01T00:00:00Z")
	cfgPath := filepath.Join(t.TempDir(), "simulator.yaml")
	if err := os.WriteFile(cfgPath, []byte("run:\n  duration: 2h\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := execute(t, "run", path, "--config", cfgPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed 3 steps") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunCommandRejectsEarlyRelease(t *testing.T) {
	path := writeScenario(t, "2026-02-28T00:00:00Z")
	out, err := execute(t, "run", path)
	if !errors.Is(err, core.ErrInvalidModel) {
		t.Fatalf("err = %v, want ErrInvalidModel", err)
	}
	if !strings.Contains(out, "is before model start time") {
		t.Fatalf("validation messages not printed: %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	path := writeScenario(t, "2026-03-01T00:00:00Z")
	out, err := execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "jetty: valid") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestValidateStrictFromEnvironment(t *testing.T) {
	path := writeScenario(t, "2026-03-05T00:00:00Z")

	if _, err := execute(t, "validate", path); err != nil {
		t.Fatalf("late release should only warn without strict: %v", err)
	}

	t.Setenv("SPILLSIM_RUN_STRICT", "true")
	out, err := execute(t, "validate", path)
	if !errors.Is(err, core.ErrInvalidModel) {
		t.Fatalf("err = %v, want ErrInvalidModel", err)
	}
	if !strings.Contains(out, "all spills are released after the model run ends") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestValidateMissingScenario(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestRunCommandRejectsBadLogLevel(t *testing.T) {
	path := writeScenario(t, "2026-03-01T00:00:00Z")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", path, "--log-level", "chatty"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for an unknown log level")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != "simulator dev" {
		t.Fatalf("version output = %q", out)
	}
}

func TestSampleScenarioValidates(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join("..", "..", "configs", "harbour.json"))
	if err != nil {
		t.Fatalf("validate sample: %v\n%s", err, out)
	}
	if !strings.Contains(out, "harbour: valid") {
		t.Fatalf("unexpected output: %q", out)
	}
}
