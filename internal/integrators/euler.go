package integrators

import "github.com/SamEberl/control-playground/internal/sim"

// Euler is the explicit first-order step. Kept for accuracy comparisons
// against RK4; too diffusive for the interactive loop at large dt.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, force, t, dt float64) sim.State {
	dx := dyn.Derivative(x, force, t)
	result := make(sim.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
