package sim_test

import (
	"math"
	"testing"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/control"
	"github.com/SamEberl/control-playground/internal/integrators"
	"github.com/SamEberl/control-playground/internal/sim"
)

func newLoop(t *testing.T, ctrl sim.Controller, initial sim.State) *sim.Loop {
	t.Helper()
	p := cartpole.Defaults()
	model, err := cartpole.NewModel(p)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	loop, err := sim.NewLoop(model, integrators.NewRK4(), ctrl, nil, sim.LoopConfig{
		Dt:         p.Dt,
		MaxForce:   p.MaxForce,
		TrackLimit: p.TrackHalfLength,
		Initial:    initial,
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	return loop
}

// Controller returning a fixed sequence of values, non-finite included.
type scriptedController struct {
	outputs []float64
	i       int
}

func (s *scriptedController) Compute(x sim.State, t float64, ref sim.Reference) float64 {
	if s.i >= len(s.outputs) {
		return 0
	}
	u := s.outputs[s.i]
	s.i++
	return u
}

func (s *scriptedController) Reset() { s.i = 0 }

func TestLoopEquilibriumStaysPut(t *testing.T) {
	loop := newLoop(t, control.NewNone(), sim.State{0, 0, 0, 0})

	loop.Advance(1000)

	for i, v := range loop.State() {
		if v != 0 {
			t.Errorf("state[%d] should stay exactly 0 from upright rest, got %g", i, v)
		}
	}
}

func TestLoopPauseFreezesState(t *testing.T) {
	loop := newLoop(t, control.NewNone(), sim.State{0, 0, 0.3, 0})

	loop.Advance(10)
	st, tm := loop.State(), loop.Time()

	loop.TogglePause()
	loop.Advance(100)

	if loop.Time() != tm {
		t.Errorf("time advanced while paused: %g vs %g", loop.Time(), tm)
	}
	for i, v := range loop.State() {
		if v != st[i] {
			t.Errorf("state[%d] changed while paused", i)
		}
	}

	loop.TogglePause()
	loop.Advance(1)
	if loop.Time() == tm {
		t.Error("time should advance after resume")
	}
}

func TestLoopResetRestoresInitial(t *testing.T) {
	initial := sim.State{0.1, 0, 0.2, 0}
	loop := newLoop(t, control.NewAnglePID(50, 1, 10), initial)
	loop.SetReference(sim.Reference{X: 0.5})

	loop.Advance(200)
	loop.Reset()

	for i, v := range loop.State() {
		if v != initial[i] {
			t.Errorf("state[%d] = %g after reset, want %g", i, v, initial[i])
		}
	}
	if loop.Time() != 0 || loop.Steps() != 0 {
		t.Errorf("clock not reset: t=%g steps=%d", loop.Time(), loop.Steps())
	}
	if !loop.Running() {
		t.Error("reset must preserve the running state")
	}
	if ref := loop.Reference(); ref.X != 0.5 {
		t.Errorf("reset must preserve the reference, got %+v", ref)
	}

	// Deterministic replay: same inputs from the same start.
	loop.Advance(200)
	first := loop.State()
	loop.Reset()
	loop.Advance(200)
	second := loop.State()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("replay diverged at component %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestLoopNonFiniteForceSubstitutesZero(t *testing.T) {
	bad := &scriptedController{outputs: []float64{math.NaN(), math.Inf(1)}}
	loop := newLoop(t, bad, sim.State{0, 0, 0.2, 0})
	ref := newLoop(t, control.NewNone(), sim.State{0, 0, 0.2, 0})

	loop.Advance(5)
	ref.Advance(5)

	if loop.Faults() != 2 {
		t.Errorf("expected 2 faults, got %d", loop.Faults())
	}
	if loop.Err() == nil {
		t.Error("expected a recorded fault error")
	}
	if !loop.Running() {
		t.Error("non-finite force should not pause the loop")
	}

	want := ref.State()
	for i, v := range loop.State() {
		if v != want[i] {
			t.Errorf("faulted run should match zero-force run, state[%d] %v vs %v", i, v, want[i])
		}
	}
}

func TestLoopClampsAtTrackEnd(t *testing.T) {
	// Constant max push to the right drives the cart into the end stop.
	loop := newLoop(t, constantController(60), sim.State{0, 0, 0, 0})

	for i := 0; i < 5000; i++ {
		loop.Advance(1)
	}

	st := loop.State()
	lim := cartpole.Defaults().TrackHalfLength
	if st[sim.X] != lim {
		t.Errorf("cart should rest exactly at the end stop %g, got %g", lim, st[sim.X])
	}
	if st[sim.XDot] != 0 {
		t.Errorf("velocity into the wall should be zeroed, got %g", st[sim.XDot])
	}
	if !loop.Saturated() {
		t.Error("force beyond the clamp should be flagged saturated")
	}
	if loop.AppliedForce() != cartpole.Defaults().MaxForce {
		t.Errorf("applied force should be clamped to max, got %g", loop.AppliedForce())
	}
}

func TestLoopClampsOvershotInitialState(t *testing.T) {
	// Starting beyond the track limit, one tick lands exactly on it.
	loop := newLoop(t, control.NewNone(), sim.State{3.0, 0, 0, 0})
	lim := cartpole.Defaults().TrackHalfLength

	loop.Advance(1)

	st := loop.State()
	if st[sim.X] != lim {
		t.Errorf("post-step x = %g, want exactly %g", st[sim.X], lim)
	}
	if st[sim.XDot] > 0 {
		t.Errorf("velocity into the wall should be zeroed, got %g", st[sim.XDot])
	}
}

func TestLoopResetIdempotent(t *testing.T) {
	initial := sim.State{0, 0, 0.2, 0}
	loop := newLoop(t, control.NewAnglePID(50, 1, 10), initial)

	loop.Advance(100)
	loop.Reset()
	once := loop.State()
	loop.Reset()
	twice := loop.State()

	for i := range once {
		if once[i] != twice[i] || twice[i] != initial[i] {
			t.Errorf("double reset diverged at component %d: %v / %v / %v", i, initial[i], once[i], twice[i])
		}
	}
	if loop.Faults() != 0 || loop.Err() != nil {
		t.Error("reset should clear fault bookkeeping")
	}
}

func TestLoopDisturbanceClearedAfterAdvance(t *testing.T) {
	loop := newLoop(t, control.NewNone(), sim.State{0, 0, 0, 0})

	loop.SetDisturbance(10)
	loop.Advance(1)
	if loop.Disturbance() != 0 {
		t.Errorf("disturbance should clear after advancing, got %g", loop.Disturbance())
	}
	if loop.State()[sim.XDot] == 0 {
		t.Error("disturbance should have moved the cart")
	}

	// While paused the pending disturbance is kept for the next tick.
	loop.SetRunning(false)
	loop.SetDisturbance(10)
	loop.Advance(1)
	if loop.Disturbance() != 10 {
		t.Errorf("paused loop must keep the pending disturbance, got %g", loop.Disturbance())
	}
}

func TestLoopReferenceClamping(t *testing.T) {
	loop := newLoop(t, control.NewNone(), sim.State{0, 0, 0, 0})
	lim := cartpole.Defaults().TrackHalfLength

	loop.SetReference(sim.Reference{X: 100, Theta: 3 * math.Pi})
	ref := loop.Reference()
	if ref.X != lim {
		t.Errorf("reference x should clamp to %g, got %g", lim, ref.X)
	}
	if math.Abs(math.Abs(ref.Theta)-math.Pi) > 1e-9 {
		t.Errorf("reference theta should wrap, got %g", ref.Theta)
	}
}

func TestLoopRejectsBadConfig(t *testing.T) {
	p := cartpole.Defaults()
	model, _ := cartpole.NewModel(p)

	cases := []sim.LoopConfig{
		{Dt: 0, MaxForce: 50, TrackLimit: 2.4, Initial: sim.State{0, 0, 0, 0}},
		{Dt: 0.01, MaxForce: 0, TrackLimit: 2.4, Initial: sim.State{0, 0, 0, 0}},
		{Dt: 0.01, MaxForce: 50, TrackLimit: 0, Initial: sim.State{0, 0, 0, 0}},
		{Dt: 0.01, MaxForce: 50, TrackLimit: 2.4, Initial: sim.State{0, 0}},
	}
	for i, cfg := range cases {
		if _, err := sim.NewLoop(model, integrators.NewRK4(), control.NewNone(), nil, cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

type constantController float64

func (c constantController) Compute(x sim.State, t float64, ref sim.Reference) float64 {
	return float64(c)
}

func (c constantController) Reset() {}
