package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/kinematics"
	"github.com/banshee-data/kinematics/internal/monitoring"
	"github.com/banshee-data/kinematics/internal/source"
	"github.com/banshee-data/kinematics/internal/testutil"
)

type recordingTelemetry struct {
	started  []int
	failed   []int
	finished []monitoring.RunStats
}

func (r *recordingTelemetry) RunStarted(mode string, events int) { r.started = append(r.started, events) }
func (r *recordingTelemetry) EventFailed(index int, err error)   { r.failed = append(r.failed, index) }
func (r *recordingTelemetry) RunFinished(stats monitoring.RunStats) {
	r.finished = append(r.finished, stats)
}

func TestRun_RestFrame(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(3, 4)), 50)

	res, err := New(Config{}).Run(context.Background(), events, RestFrame, 0)
	require.NoError(t, err)
	require.Equal(t, len(events), res.Table.Len())

	for i := range events {
		row := res.Table.Row(i)
		for _, pair := range restFramePairs {
			a, b := row.Vectors[pair[0]], row.Vectors[pair[1]]
			in := events[i].Vector(pair[0]).Add(events[i].Vector(pair[1]))
			scale := in.E + r3.Norm(in.P3())
			sum := r3.Add(a.P3(), b.P3())
			assert.LessOrEqualf(t, r3.Norm(sum), 1e-9*scale, "event %d pair %v: momentum %v", i, pair, sum)
		}

		want0, want1, err := kinematics.BoostToRestFrame(events[i].Vector(event.K), events[i].Vector(event.PiMinus2))
		require.NoError(t, err)
		assert.Equal(t, want0, row.Vectors[event.K])
		assert.Equal(t, want1, row.Vectors[event.PiMinus2])
	}
	assert.Empty(t, res.Table.FailedRows())
	assert.Equal(t, 0, res.Stats.Failed)
}

func TestRun_LabFrame(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(5, 6)), 20)
	v := 0.5 * kinematics.SpeedOfLight

	res, err := New(Config{}).Run(context.Background(), events, LabFrame, v)
	require.NoError(t, err)
	require.Equal(t, len(events), res.Table.Len())

	for i, e := range events {
		for _, p := range event.Particles {
			want, err := kinematics.Transform(e.Vector(p), v)
			require.NoError(t, err)
			assert.Equal(t, want, res.Table.Row(i).Vectors[p], "event %d particle %s", i, p)
		}
	}
}

func TestRun_LabFrameZeroVelocityIsIdentity(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(8, 9)), 5)

	res, err := New(Config{}).Run(context.Background(), events, LabFrame, 0)
	require.NoError(t, err)
	for i, e := range events {
		for _, p := range event.Particles {
			assert.Equal(t, e.Vector(p), res.Table.Row(i).Vectors[p])
		}
	}
}

func TestRun_MissingParticleStillProducesRow(t *testing.T) {
	full := testutil.SampleEvent()
	events := []event.Event{full, full.Without(event.PiPlus4), full}

	for _, mode := range []Mode{RestFrame, LabFrame} {
		t.Run(mode.String(), func(t *testing.T) {
			tel := &recordingTelemetry{}
			res, err := New(Config{Telemetry: tel}).Run(context.Background(), events, mode, 0.3*kinematics.SpeedOfLight)
			require.NoError(t, err)
			require.Equal(t, 3, res.Table.Len())

			row := res.Table.Row(1)
			assert.True(t, row.Vectors[event.PiPlus4].IsZero(), "absent particle must be zero")
			assert.False(t, row.Vectors[event.PiMinus3].IsZero())
			assert.Equal(t, map[string]int{"pi_plus_4": 1}, res.Stats.Missing)
			require.Len(t, tel.finished, 1)
			assert.Equal(t, 1, tel.finished[0].MissingTotal())
		})
	}
}

func TestRun_RestFrameMissingPartnerPassesThrough(t *testing.T) {
	pi3 := testutil.OnShell(testutil.PionMass, r3.Vec{X: 30, Y: -20, Z: 400})
	massless := kinematics.New(500, 0, 300, 400)
	sample := testutil.SampleEvent()
	events := []event.Event{
		event.New(sample.Vector(event.K), sample.Vector(event.PiMinus2), pi3, kinematics.FourVector{}).Without(event.PiPlus4),
		event.New(sample.Vector(event.K), sample.Vector(event.PiMinus2), massless, kinematics.FourVector{}).Without(event.PiPlus4),
	}

	res, err := New(Config{}).Run(context.Background(), events, RestFrame, 0)
	require.NoError(t, err)
	require.Empty(t, res.Table.FailedRows())

	assert.Equal(t, pi3, res.Table.Row(0).Vectors[event.PiMinus3])
	assert.Equal(t, massless, res.Table.Row(1).Vectors[event.PiMinus3])
	assert.True(t, res.Table.Row(1).Vectors[event.PiPlus4].IsZero())

	// The complete (K, pi_minus_2) pair is still boosted.
	k, pi2 := res.Table.Row(0).Vectors[event.K], res.Table.Row(0).Vectors[event.PiMinus2]
	assert.InDelta(t, 0, r3.Norm(r3.Add(k.P3(), pi2.P3())), 1e-9)
}

func TestRun_RestFrameIncompleteColumnsDoNotFail(t *testing.T) {
	// pi_minus_3 lacks its energy column and pi_plus_4 is absent entirely,
	// so a boost of that pair would see zero combined energy.
	csv := "K_E,K_px,K_py,K_pz,pi_minus_2_E,pi_minus_2_px,pi_minus_2_py,pi_minus_2_pz,pi_minus_3_px,pi_minus_3_py,pi_minus_3_pz\n" +
		"600,10,20,300,200,-5,40,120,7,8,9\n" +
		"700,-30,10,500,300,15,-40,220,1,2,3\n"
	cols, err := source.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	events, err := event.FromColumns(cols, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Complete(event.PiMinus3))

	for _, workers := range []int{1, 2} {
		res, err := New(Config{Workers: workers}).Run(context.Background(), events, RestFrame, 0)
		require.NoError(t, err)
		require.Equal(t, 2, res.Table.Len())
		assert.Empty(t, res.Table.FailedRows())

		row := res.Table.Row(0)
		assert.Equal(t, kinematics.New(0, 7, 8, 9), row.Vectors[event.PiMinus3])
		assert.True(t, row.Vectors[event.PiPlus4].IsZero())
		assert.InDelta(t, 0, r3.Norm(r3.Add(row.Vectors[event.K].P3(), row.Vectors[event.PiMinus2].P3())), 1e-9)
		assert.Equal(t, map[string]int{"pi_plus_4": 2}, res.Stats.Missing)
	}
}

func TestRun_FailFast(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(1, 1)), 5)
	events[2] = event.New(kinematics.New(1, 1, 0, 0), kinematics.New(-1, 0, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0))

	tel := &recordingTelemetry{}
	res, err := New(Config{Telemetry: tel}).Run(context.Background(), events, RestFrame, 0)
	require.Error(t, err)
	assert.Nil(t, res)

	var evErr *EventError
	require.ErrorAs(t, err, &evErr)
	assert.Equal(t, 2, evErr.Index)
	assert.ErrorIs(t, err, kinematics.ErrDomain)
	assert.Equal(t, []int{2}, tel.failed)
	require.Len(t, tel.finished, 1)
	assert.True(t, tel.finished[0].Aborted)
	assert.Equal(t, 1, tel.finished[0].Failed)
	assert.Equal(t, 5, tel.finished[0].Events)
}

func TestRun_SkipInvalid(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(1, 1)), 5)
	events[3] = event.New(kinematics.New(1, 2, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0))

	tel := &recordingTelemetry{}
	res, err := New(Config{SkipInvalid: true, Telemetry: tel}).Run(context.Background(), events, RestFrame, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Table.Len())
	assert.Equal(t, []int{3}, res.Table.FailedRows())
	assert.Equal(t, 1, res.Stats.Failed)
	assert.Equal(t, []int{3}, tel.failed)
	assert.True(t, res.Table.Row(3).Vectors[event.K].IsZero())
	assert.False(t, res.Table.Row(4).Vectors[event.K].IsZero())
}

func TestRun_LabFrameSuperluminal(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(2, 2)), 3)

	for _, v := range []float64{299792458.0, 299792459.0} {
		_, err := New(Config{}).Run(context.Background(), events, LabFrame, v)
		var evErr *EventError
		require.ErrorAs(t, err, &evErr)
		assert.Equal(t, 0, evErr.Index)
		assert.ErrorIs(t, err, kinematics.ErrDomain)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(10, 20)), 1001)
	events[17] = events[17].Without(event.K)
	events[500] = events[500].Without(event.PiMinus3)

	for _, mode := range []Mode{RestFrame, LabFrame} {
		seq, err := New(Config{Workers: 1}).Run(context.Background(), events, mode, 0.8*kinematics.SpeedOfLight)
		require.NoError(t, err)

		for _, workers := range []int{2, 7, 64, 5000} {
			par, err := New(Config{Workers: workers}).Run(context.Background(), events, mode, 0.8*kinematics.SpeedOfLight)
			require.NoError(t, err)
			require.Equal(t, seq.Table.Len(), par.Table.Len())
			for i := 0; i < seq.Table.Len(); i++ {
				if diff := cmp.Diff(seq.Table.Row(i), par.Table.Row(i)); diff != "" {
					t.Fatalf("%s workers=%d row %d mismatch (-seq +par):\n%s", mode, workers, i, diff)
				}
			}
			assert.Equal(t, seq.Stats.Missing, par.Stats.Missing)
		}
	}
}

func TestRun_ParallelFailFast(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(4, 4)), 100)
	events[60] = event.New(kinematics.New(0, 0, 0, 0), kinematics.New(0, 0, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0))

	_, err := New(Config{Workers: 4}).Run(context.Background(), events, RestFrame, 0)
	var evErr *EventError
	require.ErrorAs(t, err, &evErr)
	assert.Equal(t, 60, evErr.Index)
	assert.ErrorIs(t, err, kinematics.ErrDomain)
}

func TestRun_ParallelFailFastReportsFirstFailure(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(8, 8)), 4000)
	bad := event.New(kinematics.New(1, 1, 0, 0), kinematics.New(-1, 0, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0))
	events[10], events[3999] = bad, bad

	for iter := 0; iter < 200; iter++ {
		_, err := New(Config{Workers: 8}).Run(context.Background(), events, RestFrame, 0)
		var evErr *EventError
		require.ErrorAs(t, err, &evErr)
		if evErr.Index != 10 {
			t.Fatalf("iteration %d: failing index = %d, want 10", iter, evErr.Index)
		}
	}
}

func TestRun_ParallelSkipInvalid(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(4, 5)), 100)
	bad := event.New(kinematics.New(0, 0, 0, 0), kinematics.New(0, 0, 0, 0), kinematics.New(1, 0, 0, 0), kinematics.New(1, 0, 0, 0))
	events[10], events[90] = bad, bad

	res, err := New(Config{Workers: 3, SkipInvalid: true}).Run(context.Background(), events, RestFrame, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 90}, res.Table.FailedRows())
}

func TestRun_Cancelled(t *testing.T) {
	events := testutil.RandomEvents(rand.New(rand.NewPCG(1, 2)), 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		tel := &recordingTelemetry{}
		_, err := New(Config{Workers: workers, Telemetry: tel}).Run(ctx, events, RestFrame, 0)
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, tel.finished, 1)
		assert.True(t, tel.finished[0].Aborted)
		assert.Zero(t, tel.finished[0].Failed)
	}
}

func TestRun_UnknownMode(t *testing.T) {
	_, err := New(Config{}).Run(context.Background(), nil, Mode(0), 0)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRun_EmptyBatch(t *testing.T) {
	res, err := New(Config{Workers: 4}).Run(context.Background(), nil, LabFrame, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.Len())
	assert.Equal(t, 0, res.Stats.Events)
}

func TestRun_StatsAndTelemetry(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		return t0.Add(time.Duration(calls-1) * 5 * time.Millisecond)
	}

	tel := &recordingTelemetry{}
	events := testutil.RandomEvents(rand.New(rand.NewPCG(6, 6)), 4)
	res, err := New(Config{Telemetry: tel, Now: now}).Run(context.Background(), events, LabFrame, 1e8)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, res.Stats.Duration)
	assert.Equal(t, "lab", res.Stats.Mode)
	assert.Equal(t, 4, res.Stats.Events)
	assert.Equal(t, []int{4}, tel.started)
	require.Len(t, tel.finished, 1)
	assert.Equal(t, res.Stats, tel.finished[0])
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"rest", RestFrame, false},
		{"lab", LabFrame, false},
		{"both", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
	if Mode(42).String() != "unknown" {
		t.Error("unexpected name for invalid mode")
	}
}

func TestEventError(t *testing.T) {
	inner := &kinematics.DomainError{Op: "transform", Beta: 1, Reason: "|beta| must be below 1"}
	err := &EventError{Index: 7, Err: inner}

	assert.Contains(t, err.Error(), "event 7")
	assert.True(t, errors.Is(err, kinematics.ErrDomain))
	assert.False(t, math.IsNaN(inner.Beta))
}
