// Package disturbance provides time-varying external force profiles
// applied to the cart on top of the controller output.
package disturbance

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
)

// Profile yields the external force at simulation time t. Profiles are
// pure functions of t so replaying a run reproduces the same inputs.
type Profile interface {
	Force(t float64) float64
}

// None applies no external force.
type None struct{}

func (None) Force(t float64) float64 { return 0 }

// Pulse applies a constant force over [Start, Start+Duration).
type Pulse struct {
	Amplitude float64
	Start     float64
	Duration  float64
}

func (p Pulse) Force(t float64) float64 {
	if t >= p.Start && t < p.Start+p.Duration {
		return p.Amplitude
	}
	return 0
}

// Sine applies Amplitude*sin(2*pi*Frequency*t + Phase).
type Sine struct {
	Amplitude float64
	Frequency float64
	Phase     float64
}

func (s Sine) Force(t float64) float64 {
	return s.Amplitude * math.Sin(2*math.Pi*s.Frequency*t+s.Phase)
}

// Perlin applies smooth band-limited noise, seeded so runs repeat.
type Perlin struct {
	amplitude float64
	scale     float64
	noise     *perlin.Perlin
}

// NewPerlin builds a noise profile. scale stretches time; larger values
// give slower-varying force.
func NewPerlin(amplitude, scale float64, seed int64) *Perlin {
	return &Perlin{
		amplitude: amplitude,
		scale:     scale,
		noise:     perlin.NewPerlin(2, 2, 3, seed),
	}
}

func (p *Perlin) Force(t float64) float64 {
	return p.amplitude * p.noise.Noise1D(t/p.scale)
}

// New builds a profile by name. amplitude is the peak force; start and
// duration only apply to the pulse profile, seed only to perlin.
func New(name string, amplitude, start, duration float64, seed int64) (Profile, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "pulse":
		return Pulse{Amplitude: amplitude, Start: start, Duration: duration}, nil
	case "sine":
		freq := 0.5
		if duration > 0 {
			freq = 1 / duration
		}
		return Sine{Amplitude: amplitude, Frequency: freq}, nil
	case "perlin":
		scale := duration
		if scale <= 0 {
			scale = 1
		}
		return NewPerlin(amplitude, scale, seed), nil
	default:
		return nil, fmt.Errorf("disturbance: unknown profile %q", name)
	}
}
