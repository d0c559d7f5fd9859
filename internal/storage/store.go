// Package storage persists completed runs as one directory per run:
// metadata.json with the config summary and metrics, trajectory.csv
// with the sampled states and applied force.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/SamEberl/control-playground/internal/experiment"
	"github.com/SamEberl/control-playground/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Controller  string             `json:"controller"`
	Integrator  string             `json:"integrator"`
	Disturbance string             `json:"disturbance"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Faults      int                `json:"faults"`
	Metrics     map[string]float64 `json:"metrics"`
}

var trajectoryHeader = []string{"time", "x", "x_dot", "theta", "theta_dot", "force"}

// Save writes one run directory and returns its ID.
func (s *Store) Save(controller, integrator, profile string, seed int64, dt, duration float64, result *experiment.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", controller, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	// Unsettled runs report +Inf settling time, which JSON cannot
	// encode; non-finite metrics are simply omitted from metadata.
	metrics := make(map[string]float64, len(result.Metrics))
	for name, v := range result.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			metrics[name] = v
		}
	}

	meta := RunMetadata{
		ID:          runID,
		Timestamp:   time.Now(),
		Controller:  controller,
		Integrator:  integrator,
		Disturbance: profile,
		Seed:        seed,
		Dt:          dt,
		Duration:    duration,
		Faults:      result.Faults,
		Metrics:     metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trajectory.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(trajectoryHeader); err != nil {
		return "", err
	}
	for i := range result.States {
		row := make([]string, 0, len(trajectoryHeader))
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		row = append(row, strconv.FormatFloat(result.Forces[i], 'f', 6, 64))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads trajectory.csv back into parallel slices.
func (s *Store) LoadTrajectory(runID string) (times []float64, states []sim.State, forces []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []sim.State{}, []float64{}, nil
	}

	for _, record := range records[1:] {
		if len(record) != len(trajectoryHeader) {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		times = append(times, vals[0])
		states = append(states, sim.State(vals[1:1+sim.StateDim]))
		forces = append(forces, vals[len(vals)-1])
	}
	return times, states, forces, nil
}

// ExportJSON writes a run's metadata and trajectory as a single JSON
// document to path.
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, states, forces, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	doc := struct {
		Metadata *RunMetadata `json:"metadata"`
		Times    []float64    `json:"times"`
		States   []sim.State  `json:"states"`
		Forces   []float64    `json:"forces"`
	}{meta, times, states, forces}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportCSV copies a run's trajectory.csv to path.
func (s *Store) ExportCSV(runID, path string) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
