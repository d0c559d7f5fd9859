// Package metrics accumulates trajectory summaries from the per-tick
// (t, state, force) stream: settling time, peak tracking errors and an
// energy-input proxy. All reads are derived; nothing is mutated
// retroactively.
package metrics

import (
	"math"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/sim"
)

// Collector implements sim.Recorder. It is reset together with the
// simulation state, never independently: its values are only defined
// relative to one trajectory.
type Collector struct {
	settleX     float64
	settleTheta float64
	settleHold  float64

	maxThetaErr float64
	maxXErr     float64
	energy      float64
	impulse     float64
	samples     int

	settled     bool
	settleTime  float64
	inBand      bool
	inBandSince float64
}

// NewCollector builds a collector with the given settling band: both
// |x-ref_x| <= settleX and |wrap(theta-ref_theta)| <= settleTheta must
// hold continuously for holdSeconds.
func NewCollector(settleX, settleTheta, holdSeconds float64) *Collector {
	return &Collector{
		settleX:     settleX,
		settleTheta: settleTheta,
		settleHold:  holdSeconds,
	}
}

func (c *Collector) Record(t float64, x sim.State, force float64, ref sim.Reference, dt float64) {
	thetaErr := cartpole.WrapAngle(x[sim.Theta] - ref.Theta)
	xErr := x[sim.X] - ref.X

	c.maxThetaErr = math.Max(c.maxThetaErr, math.Abs(thetaErr))
	c.maxXErr = math.Max(c.maxXErr, math.Abs(xErr))
	c.energy += math.Abs(force*x[sim.XDot]) * dt
	c.impulse += math.Abs(force) * dt
	c.samples++

	if c.settled {
		return
	}

	inBand := math.Abs(xErr) <= c.settleX && math.Abs(thetaErr) <= c.settleTheta
	if !inBand {
		c.inBand = false
		return
	}
	if !c.inBand {
		c.inBand = true
		c.inBandSince = t
	}
	if t-c.inBandSince >= c.settleHold {
		c.settled = true
		c.settleTime = c.inBandSince
	}
}

// SettlingTime returns the time tracking error first entered the band
// it then never left for the hold window. ok is false while unsettled.
func (c *Collector) SettlingTime() (t float64, ok bool) {
	return c.settleTime, c.settled
}

// MaxError is the larger of the peak position and peak angle error
// magnitudes observed so far.
func (c *Collector) MaxError() float64 {
	return math.Max(c.maxXErr, c.maxThetaErr)
}

func (c *Collector) MaxXError() float64 { return c.maxXErr }
func (c *Collector) MaxThetaError() float64 { return c.maxThetaErr }

// Energy is the running integral of |force * cart velocity| dt, a
// work-rate proxy for control effort.
func (c *Collector) Energy() float64 { return c.energy }

// Impulse is the running integral of |force| dt.
func (c *Collector) Impulse() float64 { return c.impulse }

func (c *Collector) Samples() int { return c.samples }

func (c *Collector) Reset() {
	c.maxThetaErr = 0
	c.maxXErr = 0
	c.energy = 0
	c.impulse = 0
	c.samples = 0
	c.settled = false
	c.settleTime = 0
	c.inBand = false
	c.inBandSince = 0
}
