// Package optim sweeps controller gains over a grid and keeps the
// combination with the best run metric.
package optim

import (
	"context"
	"math"

	"github.com/SamEberl/control-playground/internal/experiment"
)

type GridSearch struct {
	gainNames []string
	ranges    [][]float64
}

func NewGridSearch(gains []string, ranges [][]float64) *GridSearch {
	return &GridSearch{gainNames: gains, ranges: ranges}
}

// Search evaluates every grid point with a fresh experiment and returns
// the gain set minimizing metricName. Lower is better for every metric
// the collector reports; unsettled runs score +Inf settling time and
// lose naturally.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(gains map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestGains map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestGains)

	return bestGains, best, ctx.Err()
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestGains *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.gainNames) {
		exp, err := build(current)
		if err != nil {
			return
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return
		}

		val := result.Metrics[metricName]
		if val < *best {
			*best = val
			*bestGains = make(map[string]float64)
			for k, v := range current {
				(*bestGains)[k] = v
			}
		}
		return
	}

	name := g.gainNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val

		g.searchRecursive(ctx, depth+1, next, build, metricName, best, bestGains)
	}
}
