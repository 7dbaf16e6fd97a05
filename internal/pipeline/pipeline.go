package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/monitoring"
	"github.com/banshee-data/kinematics/internal/table"
)

// Config holds the dependencies and policy for a Pipeline.
type Config struct {
	// Workers > 1 splits the batch into contiguous chunks processed
	// concurrently. Output order is always input order.
	Workers int
	// SkipInvalid keeps going after a failed event, emitting a zero row
	// flagged in table.Table.FailedRows. When false the first failure
	// aborts the run.
	SkipInvalid bool
	// Telemetry receives run progress. Nil means monitoring.Nop.
	Telemetry monitoring.Telemetry
	// Now is the clock used for run durations. Nil means time.Now.
	Now func() time.Time
}

// Pipeline applies one transform mode over a batch of events.
type Pipeline struct {
	workers     int
	skipInvalid bool
	telemetry   monitoring.Telemetry
	now         func() time.Time
}

// Stats summarises a run.
type Stats = monitoring.RunStats

// Result is the output of a run.
type Result struct {
	Table *table.Table
	Stats Stats
}

// EventError attaches the index of the offending event to a transform error.
type EventError struct {
	Index int
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %d: %v", e.Index, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// ErrUnknownMode is returned for a Mode other than RestFrame or LabFrame.
var ErrUnknownMode = errors.New("unknown transform mode")

func errUnknownMode(m Mode) error {
	return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		workers:     cfg.Workers,
		skipInvalid: cfg.SkipInvalid,
		telemetry:   cfg.Telemetry,
		now:         cfg.Now,
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.telemetry == nil {
		p.telemetry = monitoring.Nop{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run transforms every event and returns one output row per event, in input
// order. velocityMPS is only used in LabFrame mode. The context is checked
// at event boundaries; on cancellation Run returns ctx.Err(). A run that
// aborts still reports its stats to telemetry, flagged as aborted.
func (p *Pipeline) Run(ctx context.Context, events []event.Event, mode Mode, velocityMPS float64) (*Result, error) {
	if mode != RestFrame && mode != LabFrame {
		return nil, errUnknownMode(mode)
	}

	start := p.now()
	p.telemetry.RunStarted(mode.String(), len(events))
	stats := Stats{Mode: mode.String(), Events: len(events), Missing: missingCounts(events)}

	rows, errs, err := p.transformAll(ctx, events, mode, velocityMPS)
	if err != nil {
		var evErr *EventError
		if errors.As(err, &evErr) {
			stats.Failed = 1
		}
		stats.Aborted = true
		stats.Duration = p.now().Sub(start)
		p.telemetry.RunFinished(stats)
		return nil, err
	}

	// Recombine by index so row i always belongs to event i.
	tbl := table.New(len(events))
	for i := range events {
		if errs[i] != nil {
			stats.Failed++
			p.telemetry.EventFailed(i, &EventError{Index: i, Err: errs[i]})
			tbl.AppendFailed()
			continue
		}
		tbl.Append(rows[i])
	}
	stats.Duration = p.now().Sub(start)
	p.telemetry.RunFinished(stats)

	return &Result{Table: tbl, Stats: stats}, nil
}

func missingCounts(events []event.Event) map[string]int {
	counts := map[string]int{}
	for i := range events {
		for _, m := range events[i].Missing() {
			counts[m.Name()]++
		}
	}
	return counts
}

// transformAll fills rows[i] or errs[i] for every event. Under the fail-fast
// policy it returns the failure with the lowest index, the same one a
// sequential pass would stop at: workers share the lowest failing index seen
// so far and only stop once they are past it.
func (p *Pipeline) transformAll(ctx context.Context, events []event.Event, mode Mode, velocityMPS float64) ([]event.Transformed, []error, error) {
	rows := make([]event.Transformed, len(events))
	errs := make([]error, len(events))

	var firstFailure atomic.Int64
	firstFailure.Store(math.MaxInt64)
	recordFailure := func(i int) {
		for {
			cur := firstFailure.Load()
			if int64(i) >= cur || firstFailure.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	work := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if int64(i) > firstFailure.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := transformEvent(events[i], mode, velocityMPS)
			if err != nil {
				errs[i] = err
				if !p.skipInvalid {
					recordFailure(i)
					return nil
				}
				continue
			}
			rows[i] = row
		}
		return nil
	}

	var err error
	if p.workers == 1 || len(events) < 2 {
		err = work(0, len(events))
	} else {
		var g errgroup.Group
		chunk := (len(events) + p.workers - 1) / p.workers
		for lo := 0; lo < len(events); lo += chunk {
			hi := min(lo+chunk, len(events))
			g.Go(func() error { return work(lo, hi) })
		}
		err = g.Wait()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if err != nil {
		return nil, nil, err
	}
	if i := firstFailure.Load(); i != math.MaxInt64 {
		evErr := &EventError{Index: int(i), Err: errs[i]}
		p.telemetry.EventFailed(int(i), evErr)
		return nil, nil, evErr
	}
	return rows, errs, nil
}
