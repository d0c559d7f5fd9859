// Package plot renders stored trajectories to PNG time-series and
// phase-plane figures.
package plot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/SamEberl/control-playground/internal/sim"
)

func savePNG(p *plot.Plot, widthIn, heightIn float64, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(300),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	defer bw.Flush()

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("plot: write %s: %w", path, err)
	}
	return nil
}

func line(xs, ys []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Width = vg.Points(1.5)
	return l, nil
}

func saveLine(path, title, xlabel, ylabel string, xs, ys []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return fmt.Errorf("plot: need matching non-empty series for %s", title)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	l, err := line(xs, ys)
	if err != nil {
		return err
	}
	p.Add(l, plotter.NewGrid())

	return savePNG(p, 8.0, 6.0, path)
}

func component(states []sim.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = s[idx]
	}
	return out
}

// TimeSeries writes cart position, pole angle and applied force plots
// into outDir.
func TimeSeries(outDir string, times []float64, states []sim.State, forces []float64) error {
	if err := saveLine(filepath.Join(outDir, "cart_position.png"),
		"Cart Position", "time (s)", "x (m)", times, component(states, sim.X)); err != nil {
		return err
	}
	if err := saveLine(filepath.Join(outDir, "pole_angle.png"),
		"Pole Angle (0 = upright)", "time (s)", "theta (rad)", times, component(states, sim.Theta)); err != nil {
		return err
	}
	return saveLine(filepath.Join(outDir, "applied_force.png"),
		"Applied Force", "time (s)", "F (N)", times, forces)
}

// PolePhase writes the pole phase-plane plot (theta vs thetadot).
func PolePhase(path string, states []sim.State) error {
	return saveLine(path, "Pole Phase Plane", "theta (rad)", "theta_dot (rad/s)",
		component(states, sim.Theta), component(states, sim.ThetaDot))
}

// CartPhase writes the cart phase-plane plot (x vs xdot).
func CartPhase(path string, states []sim.State) error {
	return saveLine(path, "Cart Phase Plane", "x (m)", "x_dot (m/s)",
		component(states, sim.X), component(states, sim.XDot))
}
