package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/ore/internal/oreconfig"
)

const dateLayout = "2006-01-02"

// buildDateGrid reads simulation.dateGrid (a comma-separated list of
// explicit dates) if present, otherwise builds an evenly spaced grid from
// asOf out to simulation.horizonYears (default 1) in steps of
// simulation.timeStepMonths (default 3) — generating the scenario dates
// is the simulation config's job, not the curve/model calibration that is
// out of scope.
func buildDateGrid(sim oreconfig.Group, asOf time.Time) ([]time.Time, error) {
	if raw, ok := sim.Get("dateGrid"); ok && raw != "" {
		parts := strings.Split(raw, ",")
		grid := make([]time.Time, 0, len(parts))
		for _, p := range parts {
			d, err := time.Parse(dateLayout, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			grid = append(grid, d)
		}
		return grid, nil
	}

	horizonYears := groupInt(sim, "horizonYears", 1)
	stepMonths := groupInt(sim, "timeStepMonths", 3)
	if stepMonths <= 0 {
		stepMonths = 3
	}

	var grid []time.Time
	for d := asOf; !d.After(asOf.AddDate(horizonYears, 0, 0)); d = d.AddDate(0, stepMonths, 0) {
		grid = append(grid, d)
	}
	return grid, nil
}

func groupInt(g oreconfig.Group, key string, def int) int {
	v, ok := g.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
