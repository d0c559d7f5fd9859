// Package experiment runs headless simulations from a config and
// collects their trajectories and summary metrics.
package experiment

import (
	"context"
	"math"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/config"
	"github.com/SamEberl/control-playground/internal/disturbance"
	"github.com/SamEberl/control-playground/internal/metrics"
	"github.com/SamEberl/control-playground/internal/sim"
)

// Result is one completed run: parallel time/state/force slices plus
// the collector summaries keyed by name.
type Result struct {
	Times   []float64
	States  []sim.State
	Forces  []float64
	Metrics map[string]float64
	Faults  int
	Err     error
}

// Experiment wires a model, integrator, controller and disturbance
// profile into a loop and runs it for the configured duration.
type Experiment struct {
	cfg     *config.Config
	loop    *sim.Loop
	profile disturbance.Profile
	coll    *metrics.Collector
}

func New(cfg *config.Config) (*Experiment, error) {
	p, err := cfg.Params()
	if err != nil {
		return nil, err
	}

	model, err := cartpole.NewModel(p)
	if err != nil {
		return nil, err
	}
	model.SetFriction(cfg.Friction)

	reg := NewRegistry()
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := reg.GetController(cfg.Controller, cfg.Gains)
	if err != nil {
		return nil, err
	}
	profile, err := reg.GetDisturbance(cfg.Disturbance, cfg.Seed)
	if err != nil {
		return nil, err
	}

	coll := metrics.NewCollector(p.SettleX, p.SettleTheta, p.SettleHold)
	loop, err := sim.NewLoop(model, integ, ctrl, coll, sim.LoopConfig{
		Dt:         p.Dt,
		MaxForce:   p.MaxForce,
		TrackLimit: p.TrackHalfLength,
		Initial:    cfg.InitialState(),
	})
	if err != nil {
		return nil, err
	}
	loop.SetReference(cfg.ReferencePoint())

	return &Experiment{cfg: cfg, loop: loop, profile: profile, coll: coll}, nil
}

// Loop exposes the underlying loop, mainly for interactive frontends
// that want to reuse the wiring.
func (e *Experiment) Loop() *sim.Loop { return e.loop }

// Run steps the loop until the configured duration elapses or ctx is
// cancelled. The returned Result is valid in both cases.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	dt := e.loop.Dt()
	steps := int(math.Ceil(e.cfg.Duration / dt))

	res := &Result{
		Times:  make([]float64, 0, steps),
		States: make([]sim.State, 0, steps),
		Forces: make([]float64, 0, steps),
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			e.finish(res)
			return res, ctx.Err()
		default:
		}
		if !e.loop.Running() {
			break
		}
		e.loop.SetDisturbance(e.profile.Force(e.loop.Time()))
		e.loop.Advance(1)

		res.Times = append(res.Times, e.loop.Time())
		res.States = append(res.States, e.loop.State())
		res.Forces = append(res.Forces, e.loop.AppliedForce())
	}

	e.finish(res)
	return res, nil
}

func (e *Experiment) finish(res *Result) {
	res.Faults = e.loop.Faults()
	res.Err = e.loop.Err()

	res.Metrics = map[string]float64{
		"max_x_error":     e.coll.MaxXError(),
		"max_theta_error": e.coll.MaxThetaError(),
		"energy":          e.coll.Energy(),
		"impulse":         e.coll.Impulse(),
	}
	if t, ok := e.coll.SettlingTime(); ok {
		res.Metrics["settling_time"] = t
	} else {
		res.Metrics["settling_time"] = math.Inf(1)
	}
}
