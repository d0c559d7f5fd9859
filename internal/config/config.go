// Package config loads and saves run configuration as YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/sim"
)

type Config struct {
	Controller string  `yaml:"controller"`
	Integrator string  `yaml:"integrator"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`
	Friction   bool    `yaml:"friction"`

	Physics     PhysicsConfig     `yaml:"physics"`
	InitState   InitStateConfig   `yaml:"init_state"`
	Reference   ReferenceConfig   `yaml:"reference"`
	Gains       GainsConfig       `yaml:"gains"`
	Disturbance DisturbanceConfig `yaml:"disturbance"`
	Settle      SettleConfig      `yaml:"settle"`
}

type PhysicsConfig struct {
	CartMass        float64 `yaml:"cart_mass"`
	PoleMass        float64 `yaml:"pole_mass"`
	PoleHalfLength  float64 `yaml:"pole_half_length"`
	Gravity         float64 `yaml:"gravity"`
	CartDamping     float64 `yaml:"cart_damping"`
	PoleDamping     float64 `yaml:"pole_damping"`
	MaxForce        float64 `yaml:"max_force"`
	TrackHalfLength float64 `yaml:"track_half_length"`
	Dt              float64 `yaml:"dt"`
	Substeps        int     `yaml:"substeps"`
}

type InitStateConfig struct {
	X        float64 `yaml:"x"`
	XDot     float64 `yaml:"x_dot"`
	Theta    float64 `yaml:"theta"`
	ThetaDot float64 `yaml:"theta_dot"`
}

type ReferenceConfig struct {
	X     float64 `yaml:"x"`
	Theta float64 `yaml:"theta"`
}

type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

type DisturbanceConfig struct {
	Profile   string  `yaml:"profile"`
	Amplitude float64 `yaml:"amplitude"`
	Start     float64 `yaml:"start"`
	Duration  float64 `yaml:"duration"`
}

type SettleConfig struct {
	X     float64 `yaml:"x"`
	Theta float64 `yaml:"theta"`
	Hold  float64 `yaml:"hold"`
}

func DefaultConfig() *Config {
	p := cartpole.Defaults()
	return &Config{
		Controller: "angle-pid",
		Integrator: "rk4",
		Duration:   10.0,
		Friction:   true,
		Physics: PhysicsConfig{
			CartMass:        p.CartMass,
			PoleMass:        p.PoleMass,
			PoleHalfLength:  p.PoleHalfLength,
			Gravity:         p.Gravity,
			CartDamping:     p.CartDamping,
			PoleDamping:     p.PoleDamping,
			MaxForce:        p.MaxForce,
			TrackHalfLength: p.TrackHalfLength,
			Dt:              p.Dt,
			Substeps:        p.Substeps,
		},
		InitState: InitStateConfig{Theta: 0.15},
		Gains:     GainsConfig{Kp: 50.0, Ki: 1.0, Kd: 10.0},
		Disturbance: DisturbanceConfig{
			Profile: "none",
		},
		Settle: SettleConfig{X: p.SettleX, Theta: p.SettleTheta, Hold: p.SettleHold},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params maps the physics section onto validated model parameters.
func (c *Config) Params() (cartpole.Params, error) {
	p := cartpole.Defaults()
	p.CartMass = c.Physics.CartMass
	p.PoleMass = c.Physics.PoleMass
	p.PoleHalfLength = c.Physics.PoleHalfLength
	p.Gravity = c.Physics.Gravity
	p.CartDamping = c.Physics.CartDamping
	p.PoleDamping = c.Physics.PoleDamping
	p.MaxForce = c.Physics.MaxForce
	p.TrackHalfLength = c.Physics.TrackHalfLength
	p.Dt = c.Physics.Dt
	p.Substeps = c.Physics.Substeps
	p.SettleX = c.Settle.X
	p.SettleTheta = c.Settle.Theta
	p.SettleHold = c.Settle.Hold
	if err := p.Validate(); err != nil {
		return cartpole.Params{}, err
	}
	return p, nil
}

func (c *Config) InitialState() sim.State {
	return sim.State{c.InitState.X, c.InitState.XDot, c.InitState.Theta, c.InitState.ThetaDot}
}

func (c *Config) ReferencePoint() sim.Reference {
	return sim.Reference{X: c.Reference.X, Theta: c.Reference.Theta}
}
