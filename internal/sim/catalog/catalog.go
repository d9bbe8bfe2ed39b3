package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Phase is a single step of a multi-phase event.
type Phase struct {
	Type     string
	Duration float64
}

// Event is one validated catalogue entry. Built once at load, never mutated.
type Event struct {
	Name       string
	Type       string // "ambient", "rare", or any other declared category
	Weight     int
	Cooldown   float64 // seconds since this event's own last trigger
	MinRuntime float64 // absolute session seconds before eligible at all
	Duration   float64 // sum of phase durations when phases are present
	Color      [3]uint8
	Phases     []Phase
	Conditions map[string][]string
	RareTier   int // 0 non-rare, 1 conditioned rare, 2 fallback rare
}

// Rare reports whether the event competes in the rare slot.
func (e Event) Rare() bool { return e.Type == "rare" }

// SchedulerConfig holds the three pacing tunables for the event scheduler.
type SchedulerConfig struct {
	RareMinInterval    float64
	RareRetryInterval  float64
	AmbientMinInterval float64
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RareMinInterval:    600,
		RareRetryInterval:  30,
		AmbientMinInterval: 5,
	}
}

// Warning records one recoverable problem found while parsing the catalogue.
// Index is the position in the events list, or -1 for the scheduler block.
type Warning struct {
	Index   int
	Message string
}

func (w Warning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("scheduler: %s", w.Message)
	}
	return fmt.Sprintf("event[%d]: %s", w.Index, w.Message)
}

type Catalog struct {
	Events    []Event
	Scheduler SchedulerConfig
	Warnings  []Warning
	Digest    string
}

// Ambient returns the non-rare events, in catalogue order.
func (c *Catalog) Ambient() []Event {
	out := make([]Event, 0, len(c.Events))
	for _, e := range c.Events {
		if !e.Rare() {
			out = append(out, e)
		}
	}
	return out
}

// RareTier returns the rare events resolved to the given tier, in catalogue order.
func (c *Catalog) RareTier(tier int) []Event {
	out := make([]Event, 0, len(c.Events))
	for _, e := range c.Events {
		if e.Rare() && e.RareTier == tier {
			out = append(out, e)
		}
	}
	return out
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

type rawDocument struct {
	Scheduler json.RawMessage   `json:"scheduler"`
	Events    []json.RawMessage `json:"events"`
}

type rawScheduler struct {
	RareMinInterval    *float64 `json:"rare_min_interval"`
	RareRetryInterval  *float64 `json:"rare_retry_interval"`
	AmbientMinInterval *float64 `json:"ambient_min_interval"`
}

type rawEventScheduler struct {
	Tier *int `json:"tier"`
}

type rawEvent struct {
	ID         *string            `json:"id"`
	Name       *string            `json:"name"`
	Type       *string            `json:"type"`
	Weight     *int               `json:"weight"`
	Cooldown   *float64           `json:"cooldown"`
	MinRuntime *float64           `json:"min_runtime"`
	Duration   *float64           `json:"duration"`
	Color      []float64          `json:"color"`
	Phases     *[]rawPhase        `json:"phases"`
	Conditions json.RawMessage    `json:"conditions"`
	Scheduler  *rawEventScheduler `json:"scheduler"`
}

type rawPhase struct {
	Type     *string  `json:"type"`
	Duration *float64 `json:"duration"`
}

// Parse decodes and validates a catalogue document. A malformed individual
// entry or condition is dropped with a warning; only a document that is not
// an object at the top level (or whose events field is not a list) fails.
func Parse(raw []byte) (*Catalog, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalogue: %w", err)
	}

	c := &Catalog{
		Scheduler: DefaultSchedulerConfig(),
		Digest:    sha256Hex(raw),
	}
	c.parseScheduler(doc.Scheduler)

	for i, entry := range doc.Events {
		ev, ok := c.parseEvent(entry, i)
		if ok {
			c.Events = append(c.Events, ev)
		}
	}
	return c, nil
}

func (c *Catalog) warnf(index int, format string, args ...any) {
	c.Warnings = append(c.Warnings, Warning{Index: index, Message: fmt.Sprintf(format, args...)})
}

func (c *Catalog) parseScheduler(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var s rawScheduler
	if err := json.Unmarshal(raw, &s); err != nil {
		c.warnf(-1, "malformed block, using defaults: %v", err)
		return
	}
	// Each field falls back to its default independently.
	if s.RareMinInterval != nil {
		if *s.RareMinInterval >= 0 {
			c.Scheduler.RareMinInterval = *s.RareMinInterval
		} else {
			c.warnf(-1, "rare_min_interval must be >= 0, using default")
		}
	}
	if s.RareRetryInterval != nil {
		if *s.RareRetryInterval >= 0 {
			c.Scheduler.RareRetryInterval = *s.RareRetryInterval
		} else {
			c.warnf(-1, "rare_retry_interval must be >= 0, using default")
		}
	}
	if s.AmbientMinInterval != nil {
		if *s.AmbientMinInterval >= 0 {
			c.Scheduler.AmbientMinInterval = *s.AmbientMinInterval
		} else {
			c.warnf(-1, "ambient_min_interval must be >= 0, using default")
		}
	}
}

func (c *Catalog) parseEvent(raw json.RawMessage, index int) (Event, bool) {
	var entry rawEvent
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.warnf(index, "invalid schema: %v", err)
		return Event{}, false
	}

	name := ""
	switch {
	case entry.ID != nil:
		name = *entry.ID
	case entry.Name != nil:
		name = *entry.Name
	}
	if name == "" {
		c.warnf(index, "missing id/name")
		return Event{}, false
	}

	evType := "ambient"
	if entry.Type != nil && *entry.Type != "" {
		evType = *entry.Type
	}

	if entry.Weight == nil || entry.Cooldown == nil || entry.MinRuntime == nil {
		c.warnf(index, "missing weight/cooldown/min_runtime")
		return Event{}, false
	}

	phases, duration, ok := c.parsePhases(entry, index)
	if !ok {
		return Event{}, false
	}

	if *entry.Weight <= 0 || *entry.Cooldown < 0 || *entry.MinRuntime < 0 || duration <= 0 {
		c.warnf(index, "invalid numeric ranges")
		return Event{}, false
	}

	color, ok := c.parseColor(entry.Color, index)
	if !ok {
		return Event{}, false
	}

	ev := Event{
		Name:       name,
		Type:       evType,
		Weight:     *entry.Weight,
		Cooldown:   *entry.Cooldown,
		MinRuntime: *entry.MinRuntime,
		Duration:   duration,
		Color:      color,
		Phases:     phases,
		Conditions: c.parseConditions(entry.Conditions, index),
	}
	ev.RareTier = c.resolveRareTier(ev, entry.Scheduler, index)
	return ev, true
}

func (c *Catalog) parsePhases(entry rawEvent, index int) ([]Phase, float64, bool) {
	if entry.Phases == nil {
		if entry.Duration == nil {
			c.warnf(index, "missing duration")
			return nil, 0, false
		}
		if *entry.Duration <= 0 {
			c.warnf(index, "duration must be > 0")
			return nil, 0, false
		}
		return nil, *entry.Duration, true
	}

	raw := *entry.Phases
	if len(raw) == 0 {
		c.warnf(index, "phases must be a non-empty list")
		return nil, 0, false
	}

	phases := make([]Phase, 0, len(raw))
	total := 0.0
	for pi, p := range raw {
		if p.Type == nil || p.Duration == nil {
			c.warnf(index, "malformed phase[%d]", pi)
			return nil, 0, false
		}
		if *p.Duration <= 0 {
			c.warnf(index, "phase[%d] duration must be > 0", pi)
			return nil, 0, false
		}
		total += *p.Duration
		phases = append(phases, Phase{Type: *p.Type, Duration: *p.Duration})
	}
	return phases, total, true
}

var defaultColor = [3]uint8{100, 116, 132}

func (c *Catalog) parseColor(raw []float64, index int) ([3]uint8, bool) {
	if raw == nil {
		return defaultColor, true
	}
	if len(raw) != 3 {
		c.warnf(index, "color must be a 3-item numeric list")
		return [3]uint8{}, false
	}
	var color [3]uint8
	for i, ch := range raw {
		v := int(ch)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		color[i] = uint8(v)
	}
	return color, true
}

func (c *Catalog) parseConditions(raw json.RawMessage, index int) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		c.warnf(index, "ignoring conditions: expected object")
		return nil
	}
	conditions := map[string][]string{}
	for key, rawValues := range byKey {
		var values []string
		if err := json.Unmarshal(rawValues, &values); err != nil || len(values) == 0 {
			c.warnf(index, "ignoring malformed condition %q", key)
			continue
		}
		if !recognizedConditionKey(key) {
			// Kept fail-closed: the event stays in the catalogue but the
			// environment never satisfies this key.
			c.warnf(index, "condition key %q is never satisfied", key)
		}
		conditions[key] = values
	}
	if len(conditions) == 0 {
		return nil
	}
	return conditions
}

// recognizedConditionKey lists the environment signals condition matching
// can actually resolve.
func recognizedConditionKey(key string) bool {
	switch key {
	case "time_of_day", "weather":
		return true
	}
	return false
}

// resolveRareTier honors an explicit valid tier override on rare events;
// otherwise conditioned rare events land in tier 1 and unconditioned ones
// fall back to tier 2. Non-rare events are always tier 0.
func (c *Catalog) resolveRareTier(ev Event, override *rawEventScheduler, index int) int {
	if !ev.Rare() {
		return 0
	}
	if override != nil && override.Tier != nil {
		if *override.Tier == 1 || *override.Tier == 2 {
			return *override.Tier
		}
		c.warnf(index, "ignoring invalid rare tier %d", *override.Tier)
	}
	if len(ev.Conditions) > 0 {
		return 1
	}
	return 2
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
