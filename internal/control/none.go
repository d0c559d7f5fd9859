package control

import "github.com/SamEberl/control-playground/internal/sim"

// None applies no force. Useful for free-swing runs and as the NaN-free
// baseline in tests.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Compute(x sim.State, t float64, ref sim.Reference) float64 { return 0 }

func (n *None) Reset() {}
