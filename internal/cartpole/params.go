package cartpole

import (
	"fmt"
	"math"
)

// Params are the physical constants of a session. They are fixed once
// the model is built; only controller gains and the friction flag are
// live-mutable between ticks.
type Params struct {
	CartMass       float64 // kg
	PoleMass       float64 // kg
	PoleHalfLength float64 // m, pivot to center of mass (rod length ~ 2l)
	Gravity        float64 // m/s^2

	// Damping coefficients used while friction is enabled.
	CartDamping float64 // N per (m/s)
	PoleDamping float64 // N*m per (rad/s)

	MaxForce        float64 // N, clamp on the total applied force
	MaxDisturbance  float64 // N, clamp on externally injected force
	TrackHalfLength float64 // m, cart position confined to +/- this

	Dt       float64 // s, fixed integration step
	Substeps int     // integration steps per UI frame

	// Settling band: both errors must stay inside for SettleHold seconds.
	SettleX     float64 // m
	SettleTheta float64 // rad
	SettleHold  float64 // s

	HistoryLen int // bounded chart/history ring length
}

func Defaults() Params {
	return Params{
		CartMass:        1.0,
		PoleMass:        0.2,
		PoleHalfLength:  0.5,
		Gravity:         9.81,
		CartDamping:     0.05,
		PoleDamping:     0.02,
		MaxForce:        50.0,
		MaxDisturbance:  50.0,
		TrackHalfLength: 2.4,
		Dt:              1.0 / 240.0,
		Substeps:        2,
		SettleX:         0.05,
		SettleTheta:     3.0 * math.Pi / 180.0,
		SettleHold:      1.0,
		HistoryLen:      900,
	}
}

// Validate rejects configurations the dynamics are not defined for.
// Construction fails at startup rather than producing NaN mid-run.
func (p Params) Validate() error {
	switch {
	case p.CartMass <= 0:
		return fmt.Errorf("cartpole: cart mass must be positive, got %g", p.CartMass)
	case p.PoleMass <= 0:
		return fmt.Errorf("cartpole: pole mass must be positive, got %g", p.PoleMass)
	case p.PoleHalfLength <= 0:
		return fmt.Errorf("cartpole: pole half-length must be positive, got %g", p.PoleHalfLength)
	case p.Gravity <= 0:
		return fmt.Errorf("cartpole: gravity must be positive, got %g", p.Gravity)
	case p.CartDamping < 0 || p.PoleDamping < 0:
		return fmt.Errorf("cartpole: damping coefficients must be non-negative")
	case p.MaxForce <= 0:
		return fmt.Errorf("cartpole: max force must be positive, got %g", p.MaxForce)
	case p.TrackHalfLength <= 0:
		return fmt.Errorf("cartpole: track half-length must be positive, got %g", p.TrackHalfLength)
	case p.Dt <= 0:
		return fmt.Errorf("cartpole: dt must be positive, got %g", p.Dt)
	case p.Substeps < 1:
		return fmt.Errorf("cartpole: substeps must be at least 1, got %d", p.Substeps)
	}
	return nil
}
