package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/SamEberl/control-playground/internal/experiment"
	"github.com/SamEberl/control-playground/internal/sim"
)

func sampleResult() *experiment.Result {
	return &experiment.Result{
		Times: []float64{0.1, 0.2, 0.3},
		States: []sim.State{
			{0, 0, 0.1, 0},
			{0.01, 0.1, 0.08, -0.2},
			{0.02, 0.15, 0.05, -0.3},
		},
		Forces: []float64{1.5, 2.0, 1.0},
		Metrics: map[string]float64{
			"max_theta_error": 0.1,
			"settling_time":   2.5,
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	runID, err := st.Save("lqr", "rk4", "pulse", 7, 1.0/240.0, 10, sampleResult())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Controller != "lqr" || meta.Integrator != "rk4" || meta.Disturbance != "pulse" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Metrics["settling_time"] != 2.5 {
		t.Errorf("metrics not persisted: %v", meta.Metrics)
	}

	times, states, forces, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("LoadTrajectory: %v", err)
	}
	if len(times) != 3 || len(states) != 3 || len(forces) != 3 {
		t.Fatalf("expected 3 samples, got %d/%d/%d", len(times), len(states), len(forces))
	}
	if math.Abs(states[1][sim.Theta]-0.08) > 1e-6 {
		t.Errorf("theta sample = %g, want 0.08", states[1][sim.Theta])
	}
	if math.Abs(forces[2]-1.0) > 1e-6 {
		t.Errorf("force sample = %g, want 1.0", forces[2])
	}
}

func TestListRuns(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	if runs, err := st.List(); err != nil || len(runs) != 0 {
		t.Fatalf("fresh store should list no runs, got %d (%v)", len(runs), err)
	}

	if _, err := st.Save("pid", "rk4", "none", 1, 0.01, 5, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save("lqr", "euler", "sine", 2, 0.01, 5, sampleResult()); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "never-created"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestExports(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save("lqr", "rk4", "none", 1, 0.01, 5, sampleResult())
	if err != nil {
		t.Fatal(err)
	}

	jsonPath := filepath.Join(dir, "out.json")
	if err := st.ExportJSON(runID, jsonPath); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Errorf("JSON export missing or empty: %v", err)
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := st.ExportCSV(runID, csvPath); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Errorf("CSV export missing or empty: %v", err)
	}
}
