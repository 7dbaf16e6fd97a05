// Command k3pi boosts K π π π decay events into the pair rest frames or a
// moving lab frame and writes the transformed four-vectors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/kinematics/internal/config"
	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/monitoring"
	"github.com/banshee-data/kinematics/internal/pipeline"
	"github.com/banshee-data/kinematics/internal/sink"
	"github.com/banshee-data/kinematics/internal/source"
	"github.com/banshee-data/kinematics/internal/store"
	"github.com/banshee-data/kinematics/internal/units"
	"github.com/banshee-data/kinematics/internal/version"
)

const metricsNamespace = "k3pi"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("k3pi: %v", err)
	}
}

// flags holds the parsed command line. set records which flags were given
// explicitly so they override config file values and nothing else does.
type flags struct {
	file          string
	numEvents     int
	mode          string
	velocity      float64
	velocityUnits string
	workers       int
	skipInvalid   bool
	configPath    string
	outCSV        string
	outArrow      string
	dbPath        string
	metrics       string
	showVersion   bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: map[string]bool{}}
	fs := flag.NewFlagSet("k3pi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.file, "file", "", "Input events file (.csv, .arrow, .arrows or .ipc)")
	fs.IntVar(&f.numEvents, "num-events", 0, "Number of events to process (0 = all)")
	fs.StringVar(&f.mode, "mode", config.ModeRest, "Transform mode: rest, lab or both")
	fs.Float64Var(&f.velocity, "velocity", 0, "Lab-frame velocity along x, in -velocity-units")
	fs.StringVar(&f.velocityUnits, "velocity-units", units.MPS, "Velocity units: "+units.GetValidUnitsString())
	fs.IntVar(&f.workers, "workers", 1, "Number of concurrent workers")
	fs.BoolVar(&f.skipInvalid, "skip-invalid", false, "Emit a zero row for events that cannot be boosted instead of aborting")
	fs.StringVar(&f.configPath, "config", "", "Path to a JSON run configuration")
	fs.StringVar(&f.outCSV, "out-csv", "final_branches.csv", "CSV output path (empty to disable)")
	fs.StringVar(&f.outArrow, "out-arrow", "", "Arrow IPC output path (empty to disable)")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database to record runs in (empty to disable)")
	fs.StringVar(&f.metrics, "metrics", "", "Write Prometheus metrics on exit to this path ('-' for stdout)")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// runConfig merges the optional config file with explicitly set flags.
func (f *flags) runConfig() (*config.RunConfig, error) {
	cfg := config.DefaultRunConfig()
	if f.configPath != "" {
		loaded, err := config.LoadRunConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.set["mode"] {
		cfg.Mode = &f.mode
	}
	if f.set["velocity"] {
		cfg.Velocity = &f.velocity
	}
	if f.set["velocity-units"] {
		cfg.VelocityUnits = &f.velocityUnits
	}
	if f.set["workers"] {
		cfg.Workers = &f.workers
	}
	if f.set["skip-invalid"] {
		policy := config.PolicyFailFast
		if f.skipInvalid {
			policy = config.PolicySkipInvalid
		}
		cfg.ErrorPolicy = &policy
	}
	if f.set["num-events"] {
		cfg.NumEvents = &f.numEvents
	}
	if f.set["out-csv"] {
		cfg.CSVPath = &f.outCSV
	}
	if f.set["out-arrow"] {
		cfg.ArrowPath = &f.outArrow
	}
	if f.set["db"] {
		cfg.DBPath = &f.dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.showVersion {
		fmt.Fprintln(stdout, version.String("k3pi"))
		return nil
	}
	if f.file == "" {
		return errors.New("-file is required")
	}

	cfg, err := f.runConfig()
	if err != nil {
		return err
	}
	modes, err := modesFor(cfg.GetMode())
	if err != nil {
		return err
	}

	cols, err := source.ReadFile(f.file)
	if err != nil {
		return err
	}
	events, err := event.FromColumns(cols, cfg.GetNumEvents())
	if err != nil {
		return fmt.Errorf("build events from %s: %w", f.file, err)
	}
	log.Printf("Loaded %d events from %s", len(events), f.file)

	prom := monitoring.NewPromTelemetry(metricsNamespace)
	p := pipeline.New(pipeline.Config{
		Workers:     cfg.GetWorkers(),
		SkipInvalid: cfg.GetSkipInvalid(),
		Telemetry:   monitoring.Multi(monitoring.LogTelemetry{}, prom),
	})

	var runs *store.Store
	if path := cfg.GetDBPath(); path != "" {
		runs, err = store.Open(path)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer runs.Close()
	}

	velocity := cfg.GetVelocityMPS()
	for _, mode := range modes {
		res, err := p.Run(ctx, events, mode, velocity)
		if err != nil {
			return fmt.Errorf("%s-frame run: %w", mode, err)
		}

		for _, path := range outputPaths(cfg, mode, len(modes) > 1) {
			if err := sink.WriteFile(path, res.Table); err != nil {
				return err
			}
			log.Printf("Wrote %d rows to %s", res.Table.Len(), path)
		}

		if runs != nil {
			meta := store.RunMeta{
				Mode:     mode.String(),
				Source:   f.file,
				Events:   res.Stats.Events,
				Failed:   res.Stats.Failed,
				Missing:  res.Stats.MissingTotal(),
				Duration: res.Stats.Duration,
			}
			if mode == pipeline.LabFrame {
				meta.VelocityMPS = velocity
			}
			id, err := runs.SaveRun(ctx, meta, res.Table)
			if err != nil {
				return fmt.Errorf("save %s-frame run: %w", mode, err)
			}
			log.Printf("Recorded %s-frame run %s in %s", mode, id, cfg.GetDBPath())
		}
	}

	if f.metrics != "" {
		if err := writeMetrics(prom, f.metrics, stdout); err != nil {
			return err
		}
	}
	return nil
}

func modesFor(mode string) ([]pipeline.Mode, error) {
	if mode == config.ModeBoth {
		return []pipeline.Mode{pipeline.RestFrame, pipeline.LabFrame}, nil
	}
	m, err := pipeline.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return []pipeline.Mode{m}, nil
}

// outputPaths lists the files a run in mode writes. A single-mode run uses
// the configured paths as given. When both modes run, the CSV goes to
// <mode>_frame_data.csv next to the configured CSV path and the Arrow file
// gets a _<mode> suffix.
func outputPaths(cfg *config.RunConfig, mode pipeline.Mode, both bool) []string {
	var paths []string
	if csvPath := cfg.GetCSVPath(); csvPath != "" {
		if both {
			csvPath = filepath.Join(filepath.Dir(csvPath), mode.String()+"_frame_data.csv")
		}
		paths = append(paths, csvPath)
	}
	if arrowPath := cfg.GetArrowPath(); arrowPath != "" {
		if both {
			ext := filepath.Ext(arrowPath)
			arrowPath = strings.TrimSuffix(arrowPath, ext) + "_" + mode.String() + ext
		}
		paths = append(paths, arrowPath)
	}
	return paths
}

func writeMetrics(prom *monitoring.PromTelemetry, path string, stdout io.Writer) error {
	if path == "-" {
		return prom.WriteText(stdout)
	}
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := prom.WriteText(out); err != nil {
		out.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	return out.Close()
}
