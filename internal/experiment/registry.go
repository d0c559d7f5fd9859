package experiment

import (
	"fmt"

	"github.com/SamEberl/control-playground/internal/config"
	"github.com/SamEberl/control-playground/internal/control"
	"github.com/SamEberl/control-playground/internal/disturbance"
	"github.com/SamEberl/control-playground/internal/integrators"
	"github.com/SamEberl/control-playground/internal/sim"
)

// Registry maps the names used in configs and on the command line to
// concrete collaborators.
type Registry struct {
	integrators map[string]func() sim.Integrator
	controllers map[string]func(config.GainsConfig) sim.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]func(config.GainsConfig) sim.Controller),
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(config.GainsConfig) sim.Controller {
		return control.NewNone()
	}
	r.controllers["pid"] = func(g config.GainsConfig) sim.Controller {
		return control.NewCartPID(g.Kp, g.Ki, g.Kd)
	}
	r.controllers["angle-pid"] = func(g config.GainsConfig) sim.Controller {
		return control.NewAnglePID(g.Kp, g.Ki, g.Kd)
	}
	r.controllers["lqr"] = func(config.GainsConfig) sim.Controller {
		return control.NewBalanceLQR()
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, gains config.GainsConfig) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(gains), nil
}

func (r *Registry) GetDisturbance(cfg config.DisturbanceConfig, seed int64) (disturbance.Profile, error) {
	return disturbance.New(cfg.Profile, cfg.Amplitude, cfg.Start, cfg.Duration, seed)
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	return names
}
