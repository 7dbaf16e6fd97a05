package monitoring

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// RunStats summarises one pipeline run.
type RunStats struct {
	Mode   string
	Events int
	Failed int
	// Aborted is set when the run stopped early on a failed event or a
	// cancelled context and produced no table.
	Aborted  bool
	Duration time.Duration
	// Missing counts events lacking each particle, keyed by particle name.
	Missing map[string]int
}

// MissingTotal returns the number of absent particle slots across the run.
func (s RunStats) MissingTotal() int {
	n := 0
	for _, c := range s.Missing {
		n += c
	}
	return n
}

// Telemetry receives run progress from the pipeline. Implementations are
// called from the goroutine that invoked Run, never from workers.
type Telemetry interface {
	RunStarted(mode string, events int)
	EventFailed(index int, err error)
	RunFinished(stats RunStats)
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RunStarted(string, int)  {}
func (Nop) EventFailed(int, error) {}
func (Nop) RunFinished(RunStats)   {}

// LogTelemetry writes run progress through Logf.
type LogTelemetry struct{}

func (LogTelemetry) RunStarted(mode string, events int) {
	Logf("kinematics: %s-frame run over %d events", mode, events)
}

func (LogTelemetry) EventFailed(index int, err error) {
	Logf("kinematics: event %d failed: %v", index, err)
}

// RunFinished logs a summary and, when any particles were absent, a single
// aggregated warning rather than one line per event.
func (LogTelemetry) RunFinished(stats RunStats) {
	if stats.Aborted {
		Logf("kinematics: %s-frame run aborted after %s: %d of %d events failed",
			stats.Mode, stats.Duration.Round(time.Microsecond), stats.Failed, stats.Events)
		return
	}
	Logf("kinematics: %s-frame run done: %d events, %d failed in %s",
		stats.Mode, stats.Events, stats.Failed, stats.Duration.Round(time.Microsecond))
	if stats.MissingTotal() == 0 {
		return
	}
	names := make([]string, 0, len(stats.Missing))
	for name := range stats.Missing {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strconv.Itoa(stats.Missing[name]))
	}
	Logf("WARNING: missing particle data treated as zero: %s", strings.Join(parts, ", "))
}

// Multi fans telemetry out to several receivers in order.
func Multi(ts ...Telemetry) Telemetry {
	return multi(ts)
}

type multi []Telemetry

func (m multi) RunStarted(mode string, events int) {
	for _, t := range m {
		t.RunStarted(mode, events)
	}
}

func (m multi) EventFailed(index int, err error) {
	for _, t := range m {
		t.EventFailed(index, err)
	}
}

func (m multi) RunFinished(stats RunStats) {
	for _, t := range m {
		t.RunFinished(stats)
	}
}
