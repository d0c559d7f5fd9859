// Package cartpole implements the cart-pole equations of motion: a
// uniform rod hinged on a driven cart, with optional viscous friction
// on the track and at the pivot.
package cartpole

import (
	"math"

	"github.com/SamEberl/control-playground/internal/sim"
)

// Model is the free cart-pole dynamics. The friction flag is the only
// mutable field; it is written between ticks by the GUI collaborator
// and read by Derivative.
type Model struct {
	p        Params
	friction bool
}

// NewModel validates p and returns the dynamics with friction enabled.
func NewModel(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Model{p: p, friction: true}, nil
}

func (m *Model) Params() Params { return m.p }

func (m *Model) StateDim() int { return sim.StateDim }

func (m *Model) SetFriction(on bool) { m.friction = on }
func (m *Model) FrictionEnabled() bool { return m.friction }

// Derivative evaluates the coupled equations of motion. The mass-matrix
// denominator l*(4/3 - m*cos^2/(M+m)) is bounded below by l/3 for any
// positive masses, so no singularity guard is needed.
func (m *Model) Derivative(x sim.State, force, t float64) sim.State {
	p := m.p
	xDot := x[sim.XDot]
	theta := x[sim.Theta]
	thetaDot := x[sim.ThetaDot]

	cartDamp, poleDamp := 0.0, 0.0
	if m.friction {
		cartDamp, poleDamp = p.CartDamping, p.PoleDamping
	}

	forceEff := force - cartDamp*xDot

	s := math.Sin(theta)
	c := math.Cos(theta)

	totalMass := p.CartMass + p.PoleMass
	ml := p.PoleMass * p.PoleHalfLength

	temp := (forceEff + ml*thetaDot*thetaDot*s) / totalMass
	denom := p.PoleHalfLength * (4.0/3.0 - p.PoleMass*c*c/totalMass)
	thetaAcc := (p.Gravity*s - c*temp) / denom
	xAcc := temp - ml*thetaAcc*c/totalMass

	// Pivot friction acts as a pure torque on the rod about its pivot.
	thetaAcc += -poleDamp * thetaDot / (p.PoleMass * p.PoleHalfLength * p.PoleHalfLength)

	return sim.State{xDot, xAcc, thetaDot, thetaAcc}
}

// Pinned returns the wall-pinned variant: the cart is held fixed and
// the pole swings as a fixed-pivot rod.
func (m *Model) Pinned() sim.Dynamics { return &pinned{m} }

type pinned struct {
	m *Model
}

func (pm *pinned) StateDim() int { return sim.StateDim }

func (pm *pinned) Derivative(x sim.State, force, t float64) sim.State {
	p := pm.m.p
	theta := x[sim.Theta]
	thetaDot := x[sim.ThetaDot]

	poleDamp := 0.0
	if pm.m.friction {
		poleDamp = p.PoleDamping
	}

	thetaAcc := p.Gravity * math.Sin(theta) / (p.PoleHalfLength * 4.0 / 3.0)
	thetaAcc += -poleDamp * thetaDot / (p.PoleMass * p.PoleHalfLength * p.PoleHalfLength)

	return sim.State{0, 0, thetaDot, thetaAcc}
}

// Energy is the total mechanical energy: cart translation, pole center
// of mass translation, pole rotation about its center (I = m*l^2/3 for
// a rod of length 2l), and potential zeroed at upright. Frictionless
// trajectories with zero force conserve it.
func (m *Model) Energy(x sim.State) float64 {
	p := m.p
	xDot := x[sim.XDot]
	theta := x[sim.Theta]
	thetaDot := x[sim.ThetaDot]

	s := math.Sin(theta)
	c := math.Cos(theta)
	l := p.PoleHalfLength

	comXDot := xDot + l*thetaDot*c
	comYDot := -l * thetaDot * s
	vCom2 := comXDot*comXDot + comYDot*comYDot

	tCart := 0.5 * p.CartMass * xDot * xDot
	tCom := 0.5 * p.PoleMass * vCom2
	iCom := p.PoleMass * l * l / 3.0
	tRot := 0.5 * iCom * thetaDot * thetaDot
	v := p.PoleMass * p.Gravity * l * (c - 1.0)

	return tCart + tCom + tRot + v
}

// WrapAngle maps theta onto [-pi, pi). Display and error-term helper;
// the integrator never wraps the state itself.
func WrapAngle(theta float64) float64 {
	w := math.Mod(theta+math.Pi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}

// Clamp confines v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
