// Command esprit reads a SimulationInput JSON from a file argument (or stdin),
// runs the simulation, and writes the SimulationLog JSON to stdout.
//
// Usage:
//
//	esprit [-car car.yaml] [-profile driver.json] [-traffic traffic.yaml]
//	       [-db runs.db] [-png trace.png] [-html trace.html] [-v] [scenario.json]
//
// The -car, -profile and -traffic files replace the scenario's default car,
// driver profile and traffic profile. -db stores the run in a telemetry
// database, and -png and -html render speed, engine speed and gear traces.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/cxd309/esprit-sim/internal/config"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/logging"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/report"
	"github.com/cxd309/esprit-sim/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	car, profile, traffic string
	db, png, html         string
	verbose               bool
	input                 string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("esprit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.car, "car", "", "car specification file (.json, .yaml) for the default car")
	fs.StringVar(&o.profile, "profile", "", "driver profile file (.json, .yaml) for the default driver")
	fs.StringVar(&o.traffic, "traffic", "", "traffic profile file (.json, .yaml)")
	fs.StringVar(&o.db, "db", "", "store the run in this SQLite telemetry database")
	fs.StringVar(&o.png, "png", "", "write a PNG trace report to this file")
	fs.StringVar(&o.html, "html", "", "write an HTML trace report to this file")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 1 {
		return o, fmt.Errorf("expected at most one scenario file, got %d", fs.NArg())
	}
	o.input = fs.Arg(0)
	return o, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	logger, err := logging.New(o.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "error creating logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logging.SetLogger(logger)
	defer logging.SetLogger(nil)

	if err := simulate(o, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "simulation error: %v\n", err)
		return 1
	}
	return 0
}

func simulate(o options, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if o.input != "" {
		data, err = os.ReadFile(o.input)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var input engine.SimulationInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("invalid input JSON: %w", err)
	}
	if err := applyOverrides(o, &input); err != nil {
		return err
	}

	sim, err := engine.NewSim(input)
	if err != nil {
		return err
	}
	simLog, err := sim.Run()
	if err != nil {
		return err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	if _, err := fmt.Fprintln(stdout, string(out)); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if o.db != "" {
		if err := save(o.db, simLog); err != nil {
			return err
		}
	}
	title := simLog.Meta.SimulationID
	if o.png != "" {
		if err := writeReport(o.png, title, simLog, report.WritePNG); err != nil {
			return err
		}
	}
	if o.html != "" {
		if err := writeReport(o.html, title, simLog, report.WriteHTML); err != nil {
			return err
		}
	}
	return nil
}

// applyOverrides loads the tuning files named on the command line into the
// scenario's default entries.
func applyOverrides(o options, input *engine.SimulationInput) error {
	if o.car != "" {
		spec, err := config.LoadCarSpecification(o.car)
		if err != nil {
			return fmt.Errorf("loading car %s: %w", o.car, err)
		}
		if input.Cars == nil {
			input.Cars = make(map[string]powertrain.CarSpecification)
		}
		input.Cars[engine.DefaultName] = spec
	}
	if o.profile != "" {
		p, err := config.LoadDriverProfile(o.profile)
		if err != nil {
			return fmt.Errorf("loading driver profile %s: %w", o.profile, err)
		}
		if input.Profiles == nil {
			input.Profiles = make(map[string]driver.Profile)
		}
		input.Profiles[engine.DefaultName] = p
	}
	if o.traffic != "" {
		p, err := config.LoadTrafficProfile(o.traffic)
		if err != nil {
			return fmt.Errorf("loading traffic profile %s: %w", o.traffic, err)
		}
		input.Traffic = &p
	}
	return nil
}

func save(path string, simLog engine.SimulationLog) error {
	store, err := telemetry.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	runID, err := store.SaveRun(simLog)
	if err != nil {
		return err
	}
	logging.L().Info("telemetry stored", zap.String("db", path), zap.String("run_id", runID))
	return nil
}

func writeReport(path, title string, simLog engine.SimulationLog, write func(io.Writer, string, []report.Trace) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := write(f, title, report.Traces(simLog)); err != nil {
		f.Close()
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return f.Close()
}
