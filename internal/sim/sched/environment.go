package sched

// Environment is the fixed-shape snapshot of ambient conditions consumed by
// condition matching. An empty field means the signal is absent; the zero
// value behaves like no environment at all, so only unconditioned events
// stay eligible.
type Environment struct {
	TimeOfDay string
	Weather   string
}

const (
	condTimeOfDay = "time_of_day"
	condWeather   = "weather"
)

// Value resolves a condition key against the environment. Unknown keys are
// rejected at this boundary rather than matched loosely.
func (e Environment) Value(key string) (string, bool) {
	switch key {
	case condTimeOfDay:
		return e.TimeOfDay, e.TimeOfDay != ""
	case condWeather:
		return e.Weather, e.Weather != ""
	}
	return "", false
}
