package climate

import "math/rand"

// WeatherSystem manages long-form transitions between clear and cloudy
// states. Hold and transition durations come from its own rng instance so
// weather never advances the scheduler's random stream. All state changes
// key off absolute session time.
type WeatherSystem struct {
	MinTransitionSeconds float64
	MaxTransitionSeconds float64
	MinHoldSeconds       float64
	MaxHoldSeconds       float64

	rng *rand.Rand

	current         string
	target          string
	transitionStart float64
	transitionEnd   float64
	nextChangeTime  float64
}

func NewWeatherSystem(rng *rand.Rand) *WeatherSystem {
	return NewTunedWeatherSystem(rng, 120, 300, 120, 300)
}

// NewTunedWeatherSystem builds a weather system with explicit transition and
// hold pacing, in seconds. Non-positive values fall back to the defaults.
func NewTunedWeatherSystem(rng *rand.Rand, minTransition, maxTransition, minHold, maxHold float64) *WeatherSystem {
	if minTransition <= 0 {
		minTransition = 120
	}
	if maxTransition < minTransition {
		maxTransition = minTransition
	}
	if minHold <= 0 {
		minHold = 120
	}
	if maxHold < minHold {
		maxHold = minHold
	}
	w := &WeatherSystem{
		MinTransitionSeconds: minTransition,
		MaxTransitionSeconds: maxTransition,
		MinHoldSeconds:       minHold,
		MaxHoldSeconds:       maxHold,
		rng:                  rng,
		current:              "clear",
		target:               "clear",
	}
	w.nextChangeTime = w.uniform(w.MinHoldSeconds, w.MaxHoldSeconds)
	return w
}

func (w *WeatherSystem) uniform(lo, hi float64) float64 {
	return lo + w.rng.Float64()*(hi-lo)
}

// CloudStrength returns the 0..1 blend toward cloudy at the given timestamp.
func (w *WeatherSystem) CloudStrength(sessionTime float64) float64 {
	if w.transitionEnd <= w.transitionStart {
		if w.current == "cloudy" {
			return 1
		}
		return 0
	}
	t := smoothstep((sessionTime - w.transitionStart) / (w.transitionEnd - w.transitionStart))
	if w.current == "clear" && w.target == "cloudy" {
		return t
	}
	if w.current == "cloudy" && w.target == "clear" {
		return 1 - t
	}
	if w.current == "cloudy" {
		return 1
	}
	return 0
}

// Current returns the dominant weather label at the given timestamp.
func (w *WeatherSystem) Current(sessionTime float64) string {
	if w.CloudStrength(sessionTime) >= 0.5 {
		return "cloudy"
	}
	return "clear"
}

// Update advances weather state using absolute session time.
func (w *WeatherSystem) Update(sessionTime float64) {
	if w.transitionEnd > w.transitionStart && sessionTime >= w.transitionEnd {
		w.current = w.target
		w.transitionStart = 0
		w.transitionEnd = 0
		w.nextChangeTime = sessionTime + w.uniform(w.MinHoldSeconds, w.MaxHoldSeconds)
	}
	if w.transitionEnd <= w.transitionStart && sessionTime >= w.nextChangeTime {
		w.beginTransition(sessionTime)
	}
}

func (w *WeatherSystem) beginTransition(sessionTime float64) {
	w.current = w.Current(sessionTime)
	if w.current == "clear" {
		w.target = "cloudy"
	} else {
		w.target = "clear"
	}
	w.transitionStart = sessionTime
	w.transitionEnd = sessionTime + w.uniform(w.MinTransitionSeconds, w.MaxTransitionSeconds)
}

// OverlayTint returns a soft RGBA tint representing cloud coverage.
func (w *WeatherSystem) OverlayTint(sessionTime float64) [4]uint8 {
	s := w.CloudStrength(sessionTime)
	return [4]uint8{
		uint8(18*s + 0.5),
		uint8(24*s + 0.5),
		uint8(28*s + 0.5),
		uint8(44*s + 0.5),
	}
}
