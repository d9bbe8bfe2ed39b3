package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz       int     `yaml:"tick_rate_hz"`
	DayLengthSeconds float64 `yaml:"day_length_seconds"`

	Weather WeatherTuning `yaml:"weather"`

	ObserverEveryTicks int `yaml:"observer_every_ticks"`
}

type WeatherTuning struct {
	MinTransitionSeconds float64 `yaml:"min_transition_seconds"`
	MaxTransitionSeconds float64 `yaml:"max_transition_seconds"`
	MinHoldSeconds       float64 `yaml:"min_hold_seconds"`
	MaxHoldSeconds       float64 `yaml:"max_hold_seconds"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Normalized(), nil
}

// Normalized fills unset or invalid fields with defaults.
func (t Tuning) Normalized() Tuning {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.DayLengthSeconds <= 0 {
		t.DayLengthSeconds = 30 * 60
	}
	if t.ObserverEveryTicks <= 0 {
		t.ObserverEveryTicks = 1
	}
	return t
}
