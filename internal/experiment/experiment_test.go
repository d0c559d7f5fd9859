package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/config"
	"github.com/SamEberl/control-playground/internal/sim"
)

func TestAnglePIDBalances(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller = "angle-pid"
	cfg.Gains = config.GainsConfig{Kp: 50, Ki: 0, Kd: 10}
	cfg.InitState = config.InitStateConfig{Theta: 0.1}
	cfg.Duration = 10
	// A wide track and position band: this law only stabilizes the
	// angle, the cart is free to drift.
	cfg.Physics.TrackHalfLength = 50
	cfg.Settle.X = 100

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := result.States[len(result.States)-1]
	if theta := math.Abs(cartpole.WrapAngle(final[sim.Theta])); theta > 0.01 {
		t.Errorf("pole should balance near upright, final |theta| = %g", theta)
	}
	if result.Faults != 0 {
		t.Errorf("expected no controller faults, got %d", result.Faults)
	}
	if st := result.Metrics["settling_time"]; math.IsInf(st, 1) || st > cfg.Duration {
		t.Errorf("expected a finite settling time, got %g", st)
	}
}

func TestLQRHoldsPosition(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller = "lqr"
	cfg.InitState = config.InitStateConfig{Theta: 0.1}
	cfg.Duration = 20

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := result.States[len(result.States)-1]
	if theta := math.Abs(cartpole.WrapAngle(final[sim.Theta])); theta > 0.05 {
		t.Errorf("final |theta| = %g, want < 0.05", theta)
	}
	if x := math.Abs(final[sim.X]); x > 0.5 {
		t.Errorf("final |x| = %g, want < 0.5", x)
	}
}

func TestFreeSwingProducesNoForce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller = "none"
	cfg.InitState = config.InitStateConfig{Theta: 0.3}
	cfg.Duration = 2

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, f := range result.Forces {
		if f != 0 {
			t.Fatalf("uncontrolled run applied force %g at sample %d", f, i)
		}
	}
	if result.Metrics["energy"] != 0 || result.Metrics["impulse"] != 0 {
		t.Errorf("effort metrics should be zero without control: %v", result.Metrics)
	}
}

func TestPulseDisturbanceIsRecorded(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller = "lqr"
	cfg.Duration = 4
	cfg.Disturbance = config.DisturbanceConfig{Profile: "pulse", Amplitude: 10, Start: 1, Duration: 0.2}

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The applied force during the pulse should differ clearly from
	// an undisturbed balanced run near zero.
	peak := 0.0
	for i, tm := range result.Times {
		if tm > 1 && tm < 1.2 {
			peak = math.Max(peak, math.Abs(result.Forces[i]))
		}
	}
	if peak < 5 {
		t.Errorf("expected the pulse to show in the applied force, peak %g", peak)
	}
}

func TestRunHonorsContext(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 1000

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := exp.Run(ctx)
	if err == nil {
		t.Error("expected a context error from a cancelled run")
	}
	if result == nil {
		t.Fatal("cancelled run should still return its partial result")
	}
}

func TestRegistryRejectsUnknownNames(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.GetController("bogus", config.GainsConfig{}); err == nil {
		t.Error("expected error for unknown controller")
	}
	if _, err := reg.GetIntegrator("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if len(reg.ListControllers()) < 4 {
		t.Errorf("expected at least 4 controllers, got %v", reg.ListControllers())
	}

	cfg := config.DefaultConfig()
	cfg.Controller = "bogus"
	if _, err := New(cfg); err == nil {
		t.Error("New should surface the unknown controller error")
	}
}
