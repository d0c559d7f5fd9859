// Package control provides feedback laws implementing sim.Controller.
// All laws return an unclamped scalar force; saturation is applied by
// the simulation loop.
package control

import (
	"fmt"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/sim"
)

// CartPID drives the cart toward the reference position:
//
//	u = Kp*(ref_x - x) + Ki*integral - Kd*xdot
//
// The derivative term uses the measured cart velocity instead of a
// finite-difference of the error, so reference jumps do not kick it.
type CartPID struct {
	Kp, Ki, Kd float64

	integral float64
	prevT    float64
}

func NewCartPID(kp, ki, kd float64) *CartPID {
	return &CartPID{Kp: kp, Ki: ki, Kd: kd}
}

func (p *CartPID) Compute(x sim.State, t float64, ref sim.Reference) float64 {
	dt := t - p.prevT
	p.prevT = t

	err := ref.X - x[sim.X]
	if dt > 0 {
		p.integral += err * dt
	}

	return p.Kp*err + p.Ki*p.integral - p.Kd*x[sim.XDot]
}

func (p *CartPID) Reset() {
	p.integral = 0
	p.prevT = 0
}

func (p *CartPID) Gains() map[string]float64 {
	return map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd}
}

func (p *CartPID) SetGain(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	default:
		return fmt.Errorf("control: unknown gain %q", name)
	}
	return nil
}

// AnglePID balances the pole against the reference angle:
//
//	u = Kp*wrap(theta - ref_theta) + Ki*integral + Kd*thetadot
//
// The error is wrapped to the shortest path so a pole that swings past
// pi is not commanded through a full rotation. Positive output pushes
// the cart under a rightward-leaning pole.
type AnglePID struct {
	Kp, Ki, Kd float64

	integral float64
	prevT    float64
}

func NewAnglePID(kp, ki, kd float64) *AnglePID {
	return &AnglePID{Kp: kp, Ki: ki, Kd: kd}
}

func (p *AnglePID) Compute(x sim.State, t float64, ref sim.Reference) float64 {
	dt := t - p.prevT
	p.prevT = t

	err := cartpole.WrapAngle(x[sim.Theta] - ref.Theta)
	if dt > 0 {
		p.integral += err * dt
	}

	return p.Kp*err + p.Ki*p.integral + p.Kd*x[sim.ThetaDot]
}

func (p *AnglePID) Reset() {
	p.integral = 0
	p.prevT = 0
}

func (p *AnglePID) Gains() map[string]float64 {
	return map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd}
}

func (p *AnglePID) SetGain(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	default:
		return fmt.Errorf("control: unknown gain %q", name)
	}
	return nil
}
