package sim

import (
	"fmt"
	"log/slog"
	"math"
)

// Slack when deciding whether the cart is resting against an end stop.
const wallEps = 1e-9

// LoopConfig holds the values the loop needs beyond its collaborators.
// TrackLimit is the track half-length: the cart position is confined to
// [-TrackLimit, TrackLimit].
type LoopConfig struct {
	Dt         float64
	MaxForce   float64
	TrackLimit float64
	Initial    State
}

func (c LoopConfig) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrBadConfig, c.Dt)
	}
	if c.MaxForce <= 0 {
		return fmt.Errorf("%w: max force must be positive, got %g", ErrBadConfig, c.MaxForce)
	}
	if c.TrackLimit <= 0 {
		return fmt.Errorf("%w: track limit must be positive, got %g", ErrBadConfig, c.TrackLimit)
	}
	if len(c.Initial) != StateDim {
		return fmt.Errorf("%w: initial state must have %d components, got %d", ErrBadConfig, StateDim, len(c.Initial))
	}
	return nil
}

// Loop is the Running/Paused tick machine. Each tick it sums the
// controller force with the externally asserted disturbance, clamps the
// total, integrates one fixed step, applies the track boundary policy
// and feeds the recorder. All mutation happens on the caller's
// goroutine; the loop is not safe for concurrent use.
type Loop struct {
	cfg    LoopConfig
	dyn    Dynamics
	pinned Dynamics
	integ  Integrator
	ctrl   Controller
	rec    Recorder
	log    *slog.Logger

	state       State
	t           float64
	steps       int
	running     bool
	ref         Reference
	disturbance float64

	lastControl float64
	lastForce   float64
	saturated   bool
	faults      int
	lastErr     error
}

// NewLoop validates cfg and builds a loop in the Running state. rec may
// be nil. If dyn implements WallPinnable, the loop integrates the
// fixed-pivot variant while the cart is pressed against an end stop.
func NewLoop(dyn Dynamics, integ Integrator, ctrl Controller, rec Recorder, cfg LoopConfig) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := &Loop{
		cfg:     cfg,
		dyn:     dyn,
		integ:   integ,
		ctrl:    ctrl,
		rec:     rec,
		log:     slog.Default(),
		state:   cfg.Initial.Clone(),
		running: true,
	}
	if wp, ok := dyn.(WallPinnable); ok {
		l.pinned = wp.Pinned()
	}
	return l, nil
}

// Advance runs n ticks, then clears the disturbance force so it must be
// re-asserted before the next frame. When paused it does nothing: state
// and elapsed time stay frozen and the disturbance is kept for the tick
// that eventually consumes it.
func (l *Loop) Advance(n int) {
	if !l.running {
		return
	}
	for i := 0; i < n && l.running; i++ {
		l.step()
	}
	l.disturbance = 0
}

func (l *Loop) step() {
	raw := l.ctrl.Compute(l.state.Clone(), l.t, l.ref)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		l.faults++
		l.lastErr = &SimError{Step: l.steps, Time: l.t, Wrapped: ErrNonFiniteForce}
		l.log.Warn("controller returned non-finite force, substituting zero",
			"t", l.t, "faults", l.faults)
		raw = 0
	}
	l.lastControl = raw

	total := raw + l.disturbance
	l.saturated = math.Abs(total) > l.cfg.MaxForce
	total = clamp(total, -l.cfg.MaxForce, l.cfg.MaxForce)

	dyn := l.dyn
	lim := l.cfg.TrackLimit
	if l.pinned != nil {
		atLeft := l.state[X] <= -lim+wallEps
		atRight := l.state[X] >= lim-wallEps
		if (atLeft && total < 0) || (atRight && total > 0) {
			if atLeft {
				l.state[X] = -lim
			} else {
				l.state[X] = lim
			}
			l.state[XDot] = 0
			dyn = l.pinned
		}
	}

	next := l.integ.Step(dyn, l.state, total, l.t, l.cfg.Dt)

	// Inelastic hard stop: clamp to the track and zero any velocity
	// still pointing into the wall.
	if next[X] < -lim {
		next[X] = -lim
		if next[XDot] < 0 {
			next[XDot] = 0
		}
	} else if next[X] > lim {
		next[X] = lim
		if next[XDot] > 0 {
			next[XDot] = 0
		}
	}

	if !next.IsValid() {
		l.lastErr = &SimError{Step: l.steps, Time: l.t, Wrapped: ErrInvalidState}
		l.log.Error("integration produced invalid state, pausing", "t", l.t)
		l.running = false
		return
	}

	l.state = next
	l.t += l.cfg.Dt
	l.steps++
	l.lastForce = total
	if l.rec != nil {
		l.rec.Record(l.t, l.state, total, l.ref, l.cfg.Dt)
	}
}

// Reset restores the initial state and clears metrics, controller
// accumulators and fault flags together. The Running/Paused status and
// the current reference are untouched.
func (l *Loop) Reset() {
	l.state = l.cfg.Initial.Clone()
	l.t = 0
	l.steps = 0
	l.disturbance = 0
	l.lastControl = 0
	l.lastForce = 0
	l.saturated = false
	l.faults = 0
	l.lastErr = nil
	l.ctrl.Reset()
	if l.rec != nil {
		l.rec.Reset()
	}
}

func (l *Loop) TogglePause() { l.running = !l.running }
func (l *Loop) SetRunning(on bool) { l.running = on }
func (l *Loop) Running() bool { return l.running }

func (l *Loop) State() State { return l.state.Clone() }
func (l *Loop) Time() float64 { return l.t }
func (l *Loop) Steps() int { return l.steps }
func (l *Loop) Dt() float64 { return l.cfg.Dt }
func (l *Loop) Controller() Controller { return l.ctrl }

// SetDisturbance asserts an external force for the upcoming ticks of
// the current frame. It is cleared after each Advance.
func (l *Loop) SetDisturbance(f float64) { l.disturbance = f }
func (l *Loop) Disturbance() float64 { return l.disturbance }

// SetReference clamps the target position onto the track and wraps the
// target angle to (-pi, pi].
func (l *Loop) SetReference(ref Reference) {
	ref.X = clamp(ref.X, -l.cfg.TrackLimit, l.cfg.TrackLimit)
	ref.Theta = math.Atan2(math.Sin(ref.Theta), math.Cos(ref.Theta))
	l.ref = ref
}
func (l *Loop) Reference() Reference { return l.ref }

// ControlForce is the last raw controller output, AppliedForce the last
// clamped total pushed into the integrator.
func (l *Loop) ControlForce() float64 { return l.lastControl }
func (l *Loop) AppliedForce() float64 { return l.lastForce }
func (l *Loop) Saturated() bool { return l.saturated }

// Faults counts ticks on which the controller output was replaced by
// zero; Err reports the most recent fault, nil if none.
func (l *Loop) Faults() int { return l.faults }
func (l *Loop) Err() error { return l.lastErr }

// SetFriction forwards the toggle to the dynamics when supported.
func (l *Loop) SetFriction(on bool) {
	if ft, ok := l.dyn.(FrictionToggler); ok {
		ft.SetFriction(on)
	}
}

func (l *Loop) FrictionEnabled() bool {
	if ft, ok := l.dyn.(FrictionToggler); ok {
		return ft.FrictionEnabled()
	}
	return false
}

// Energy reports the mechanical energy of the current state, 0 if the
// dynamics cannot compute it.
func (l *Loop) Energy() float64 {
	if h, ok := l.dyn.(Hamiltonian); ok {
		return h.Energy(l.state)
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
