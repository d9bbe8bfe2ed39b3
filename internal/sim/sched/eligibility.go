package sched

import (
	"math"
	"sort"
	"strings"

	"seascape.ai/internal/sim/catalog"
)

// timeSince returns seconds since the named event last triggered, or +Inf
// when it has never fired.
func (m *Manager) timeSince(name string, now float64) float64 {
	last, ok := m.lastTrigger[name]
	if !ok {
		return math.Inf(1)
	}
	return now - last
}

func matchesConditions(ev catalog.Event, env Environment) bool {
	for key, allowed := range ev.Conditions {
		current, ok := env.Value(key)
		if !ok {
			return false
		}
		found := false
		for _, v := range allowed {
			if v == current {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsEligible combines the minimum-runtime gate, the per-event cooldown, and
// condition matching. Events with no conditions pass the condition check
// regardless of environment.
func (m *Manager) IsEligible(ev catalog.Event, now float64, env Environment) bool {
	return now >= ev.MinRuntime &&
		m.timeSince(ev.Name, now) >= ev.Cooldown &&
		matchesConditions(ev, env)
}

// rejectionReasons lists every gate the event currently fails, for the
// arbitration trace. Empty means eligible.
func (m *Manager) rejectionReasons(ev catalog.Event, now float64, env Environment) string {
	var reasons []string
	if now < ev.MinRuntime {
		reasons = append(reasons, "min_runtime")
	}
	if m.timeSince(ev.Name, now) < ev.Cooldown {
		reasons = append(reasons, "cooldown")
	}
	keys := make([]string, 0, len(ev.Conditions))
	for key := range ev.Conditions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		current, ok := env.Value(key)
		if !ok || !containsString(ev.Conditions[key], current) {
			reasons = append(reasons, key+" mismatch")
		}
	}
	return strings.Join(reasons, ", ")
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
