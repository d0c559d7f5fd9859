// Package sim provides the core simulation primitives for the cart-pole
// bench: the state vector, the interfaces closing the control loop, and
// the fixed-rate simulation loop itself.
//
// State layout is (x, xdot, theta, thetadot): cart position and velocity,
// pole angle (0 = upright) and angular velocity. The loop is the single
// owner and mutator of State; collaborators read snapshots and write
// references, gains, disturbance forces and signals between ticks.
package sim

import "math"

// Indices into a cart-pole State.
const (
	X = iota
	XDot
	Theta
	ThetaDot

	StateDim = 4
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Reference is the target the controller tracks: cart position and pole
// angle in radians.
type Reference struct {
	X     float64
	Theta float64
}

// Dynamics maps (state, applied force, time) to the state derivative.
// Implementations must be pure: no internal mutation per call.
type Dynamics interface {
	Derivative(x State, force, t float64) State
	StateDim() int
}

// Integrator advances a state by one fixed step with the force held
// constant across substep evaluations.
type Integrator interface {
	Step(dyn Dynamics, x State, force, t, dt float64) State
}

// Controller closes the loop each tick. Compute returns an unclamped
// scalar force; clamping is the loop's job. Reset clears any internal
// accumulator so successive runs are independent.
type Controller interface {
	Compute(x State, t float64, ref Reference) float64
	Reset()
}

// Tunable is implemented by controllers with live-editable gains.
type Tunable interface {
	Gains() map[string]float64
	SetGain(name string, value float64) error
}

// Hamiltonian is implemented by dynamics that can report total
// mechanical energy for a state.
type Hamiltonian interface {
	Energy(x State) float64
}

// FrictionToggler is implemented by dynamics with switchable friction
// terms.
type FrictionToggler interface {
	SetFriction(on bool)
	FrictionEnabled() bool
}

// WallPinnable is implemented by dynamics that can integrate with the
// cart held against a track end stop (fixed-pivot pendulum).
type WallPinnable interface {
	Pinned() Dynamics
}

// Recorder consumes the per-tick (t, state, force) stream. The loop
// feeds it after every step; Reset is called together with the state
// reset so metrics are always defined relative to one trajectory.
type Recorder interface {
	Record(t float64, x State, force float64, ref Reference, dt float64)
	Reset()
}
