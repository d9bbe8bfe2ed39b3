package sched

import (
	"math/rand"

	"seascape.ai/internal/sim/catalog"
)

// pickWeighted draws one event from a non-empty pool with probability
// proportional to weight, consuming exactly one value from rng.
func pickWeighted(rng *rand.Rand, pool []catalog.Event) catalog.Event {
	total := 0
	for _, ev := range pool {
		total += ev.Weight
	}
	r := rng.Float64() * float64(total)
	cumulative := 0.0
	for _, ev := range pool {
		cumulative += float64(ev.Weight)
		if r < cumulative {
			return ev
		}
	}
	return pool[len(pool)-1]
}
