package control

import (
	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/sim"
)

// LQR is a fixed full-state feedback row:
//
//	u = K[0]*(x-ref_x) + K[1]*xdot + K[2]*wrap(theta-ref_theta) + K[3]*thetadot
//
// Stateless, so Reset is a no-op.
type LQR struct {
	K [sim.StateDim]float64
}

func NewLQR(k [sim.StateDim]float64) *LQR {
	return &LQR{K: k}
}

// NewBalanceLQR returns gains tuned for the default parameters
// (M=1, m=0.2, l=0.5): a fast inner angle loop with a slow outer
// position loop riding on it.
func NewBalanceLQR() *LQR {
	return NewLQR([sim.StateDim]float64{1.5, 3.0, 42.0, 8.5})
}

func (l *LQR) Compute(x sim.State, t float64, ref sim.Reference) float64 {
	return l.K[0]*(x[sim.X]-ref.X) +
		l.K[1]*x[sim.XDot] +
		l.K[2]*cartpole.WrapAngle(x[sim.Theta]-ref.Theta) +
		l.K[3]*x[sim.ThetaDot]
}

func (l *LQR) Reset() {}
