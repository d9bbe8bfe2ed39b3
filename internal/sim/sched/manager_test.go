package sched

import (
	"math"
	"math/rand"
	"testing"

	"seascape.ai/internal/sim/catalog"
)

type countingClock struct{ n int }

func (c *countingClock) MarkEventTriggered() { c.n++ }

type captureSink struct{ traces []ArbitrationTrace }

func (s *captureSink) RecordArbitration(tr ArbitrationTrace) { s.traces = append(s.traces, tr) }

func ambientEvent(name string, weight int, cooldown, minRuntime, duration float64) catalog.Event {
	return catalog.Event{
		Name:       name,
		Type:       "ambient",
		Weight:     weight,
		Cooldown:   cooldown,
		MinRuntime: minRuntime,
		Duration:   duration,
	}
}

func rareEvent(name string, tier int, cooldown, minRuntime, duration float64, conditions map[string][]string) catalog.Event {
	return catalog.Event{
		Name:       name,
		Type:       "rare",
		Weight:     1,
		Cooldown:   cooldown,
		MinRuntime: minRuntime,
		Duration:   duration,
		Conditions: conditions,
		RareTier:   tier,
	}
}

// activationTimes drives the manager with 1-second updates and returns the
// session times at which a new event started.
func activationTimes(m *Manager, until float64, env func(now float64) Environment) []float64 {
	var out []float64
	for now := 0.0; now <= until; now++ {
		_, wasActive := m.ActiveEvent()
		m.Update(now, env(now))
		if _, ok := m.ActiveEvent(); ok && !wasActive {
			out = append(out, now)
		}
	}
	return out
}

func noEnv(float64) Environment { return Environment{} }

func TestManager_Lifecycle(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, ambientEvent("gull", 1, 0, 0, 5))

	got := activationTimes(m, 19, noEnv)
	want := []float64{0, 6, 12, 18}
	if len(got) != len(want) {
		t.Fatalf("activations at %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("activations at %v, want %v", got, want)
		}
	}
}

func TestManager_ActiveWindowAndExpiry(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, ambientEvent("gull", 1, 100, 0, 5))

	m.Update(3, Environment{})
	start, end, ok := m.ActiveWindow()
	if !ok || start != 3 || end != 8 {
		t.Fatalf("window [%v, %v) ok=%v, want [3, 8)", start, end, ok)
	}

	m.Update(7.9, Environment{})
	if _, ok := m.ActiveEvent(); !ok {
		t.Fatalf("must still be active just before the end timestamp")
	}
	m.Update(8, Environment{})
	if _, ok := m.ActiveEvent(); ok {
		t.Fatalf("must expire once the end timestamp is reached")
	}
	if _, _, ok := m.ActiveWindow(); ok {
		t.Fatalf("window must clear on expiry")
	}
	if _, ok := m.RenderParams(); ok {
		t.Fatalf("render params must clear on expiry")
	}
}

func TestManager_CooldownSpacing(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 9999, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, ambientEvent("gull", 1, 50, 0, 5))

	got := activationTimes(m, 120, noEnv)
	if len(got) != 3 {
		t.Fatalf("expected 3 activations, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] < 50 {
			t.Fatalf("cooldown violated: activations at %v", got)
		}
	}
}

func TestManager_AmbientSpacing(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 9999, RareRetryInterval: 30, AmbientMinInterval: 10}
	m := newTestManager(cfg,
		ambientEvent("gull", 3, 0, 0, 1),
		ambientEvent("wood", 2, 0, 0, 1),
	)

	got := activationTimes(m, 60, noEnv)
	if len(got) == 0 || got[0] != 0 {
		t.Fatalf("first activation must not wait for the spacing gate, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] < 10 {
			t.Fatalf("ambient spacing violated: activations at %v", got)
		}
	}
}

func TestManager_RareTier1Dominates(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	clear := Environment{TimeOfDay: "sunset", Weather: "clear"}

	// Tier 2 carries far more weight; tier 1 must still win every time.
	for seed := int64(1); seed <= 20; seed++ {
		cat := &catalog.Catalog{
			Events: []catalog.Event{
				rareEvent("flash", 1, 0, 0, 5, map[string][]string{"weather": {"clear"}}),
				{Name: "glint", Type: "rare", Weight: 1000, Duration: 5, RareTier: 2},
				ambientEvent("gull", 1000, 0, 0, 5),
			},
			Scheduler: cfg,
		}
		m := New(cat, rand.New(rand.NewSource(seed)), nil, nil)
		m.Activate(0, clear)
		ev, ok := m.ActiveEvent()
		if !ok || ev.Name != "flash" {
			t.Fatalf("seed %d: got %q ok=%v, want conditioned rare to win", seed, ev.Name, ok)
		}
	}
}

func TestManager_RareTier2Fallback(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg,
		rareEvent("flash", 1, 0, 0, 5, map[string][]string{"weather": {"clear"}}),
		rareEvent("glint", 2, 0, 0, 5, nil),
	)

	m.Activate(0, Environment{TimeOfDay: "night", Weather: "cloudy"})
	ev, ok := m.ActiveEvent()
	if !ok || ev.Name != "glint" {
		t.Fatalf("got %q ok=%v, want tier-2 fallback", ev.Name, ok)
	}
}

func TestManager_RareRetryClock(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, rareEvent("glint", 2, 0, 10, 5, nil))

	// First check fails on min_runtime and schedules a retry.
	m.Activate(0, Environment{})
	if _, ok := m.ActiveEvent(); ok {
		t.Fatalf("must not activate before min_runtime")
	}

	// Eligible by its own gates now, but the retry clock has not come due.
	m.Activate(15, Environment{})
	if _, ok := m.ActiveEvent(); ok {
		t.Fatalf("rare slot must stay closed until the retry timestamp")
	}

	m.Activate(30, Environment{})
	if ev, ok := m.ActiveEvent(); !ok || ev.Name != "glint" {
		t.Fatalf("retry at t=30 must activate, got ok=%v", ok)
	}
}

func TestManager_RareSuccessImposesLongInterval(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, rareEvent("glint", 2, 0, 0, 2, nil))

	got := activationTimes(m, 700, noEnv)
	want := []float64{0, 600}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("activations at %v, want %v", got, want)
	}
}

func TestManager_AmbientWinStillAdvancesRareRetry(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg,
		rareEvent("flash", 1, 0, 0, 3, map[string][]string{"weather": {"clear"}}),
		ambientEvent("gull", 1, 0, 0, 1),
	)

	// Conditions block the rare event while ambient activations keep winning.
	// The sky clears at t=30; the rare slot must reopen on the short retry
	// interval, not the long post-success one.
	env := func(now float64) Environment {
		if now < 30 {
			return Environment{Weather: "cloudy"}
		}
		return Environment{Weather: "clear"}
	}

	rareAt := -1.0
	for now := 0.0; now <= 60; now++ {
		_, wasActive := m.ActiveEvent()
		m.Update(now, env(now))
		ev, ok := m.ActiveEvent()
		if ok && !wasActive && ev.Name == "flash" {
			rareAt = now
			break
		}
	}
	if rareAt != 30 {
		t.Fatalf("rare activated at t=%v, want 30", rareAt)
	}
}

func TestManager_CurrentPhase(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 9999, RareRetryInterval: 30, AmbientMinInterval: 0}
	ev := catalog.Event{
		Name:     "buoy",
		Type:     "ambient",
		Weight:   1,
		Duration: 30,
		Phases: []catalog.Phase{
			{Type: "approach", Duration: 6},
			{Type: "drift", Duration: 18},
			{Type: "fade", Duration: 6},
		},
	}
	m := newTestManager(cfg, ev)

	if _, ok := m.CurrentPhase(0); ok {
		t.Fatalf("no phase while idle")
	}
	m.Update(100, Environment{})
	if p, ok := m.CurrentPhase(103); !ok || p.Type != "approach" {
		t.Fatalf("at t=103: got (%q, %v)", p.Type, ok)
	}
	if p, ok := m.CurrentPhase(110); !ok || p.Type != "drift" {
		t.Fatalf("at t=110: got (%q, %v)", p.Type, ok)
	}
	if p, ok := m.CurrentPhase(129.5); !ok || p.Type != "fade" {
		t.Fatalf("at t=129.5: got (%q, %v)", p.Type, ok)
	}
}

func TestManager_RenderParams(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 9999, RareRetryInterval: 30, AmbientMinInterval: 0}
	m := newTestManager(cfg, ambientEvent("gull", 1, 0, 0, 5))

	m.Update(0, Environment{})
	first, ok := m.RenderParams()
	if !ok {
		t.Fatalf("expected render params while active")
	}
	if first.DriftPhase < 0 || first.DriftPhase >= 2*math.Pi {
		t.Fatalf("drift phase out of range: %v", first.DriftPhase)
	}
	if first.BobAmplitude < 1 || first.BobAmplitude >= 3 {
		t.Fatalf("bob amplitude out of range: %v", first.BobAmplitude)
	}
	if first.Shimmer < 0 || first.Shimmer >= 1 {
		t.Fatalf("shimmer out of range: %v", first.Shimmer)
	}

	m.Update(5, Environment{})
	m.Update(6, Environment{})
	second, ok := m.RenderParams()
	if !ok {
		t.Fatalf("expected render params on the second activation")
	}
	if first == second {
		t.Fatalf("render params must be regenerated per activation")
	}
}

func TestManager_NotifiesClock(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 9999, RareRetryInterval: 30, AmbientMinInterval: 0}
	clk := &countingClock{}
	cat := &catalog.Catalog{Events: []catalog.Event{ambientEvent("gull", 1, 0, 0, 5)}, Scheduler: cfg}
	m := New(cat, rand.New(rand.NewSource(1)), clk, nil)

	m.Update(0, Environment{})
	m.Update(1, Environment{})
	if clk.n != 1 {
		t.Fatalf("clock notified %d times, want 1", clk.n)
	}
	m.Update(5, Environment{})
	m.Update(6, Environment{})
	if clk.n != 2 {
		t.Fatalf("clock notified %d times, want 2", clk.n)
	}
}

func TestManager_TraceOnRareWin(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	sink := &captureSink{}
	cat := &catalog.Catalog{
		Events: []catalog.Event{
			rareEvent("flash", 1, 0, 0, 5, map[string][]string{"weather": {"clear"}}),
		},
		Scheduler: cfg,
	}
	m := New(cat, rand.New(rand.NewSource(1)), nil, sink)
	m.Activate(0, Environment{Weather: "clear"})

	if len(sink.traces) != 1 {
		t.Fatalf("expected 1 trace, got %d", len(sink.traces))
	}
	tr := sink.traces[0]
	if tr.Chosen != "flash" || tr.ChosenTier != 1 {
		t.Fatalf("unexpected trace: %+v", tr)
	}
	if len(tr.Tier1Eligible) != 1 || tr.Tier1Eligible[0] != "flash" {
		t.Fatalf("unexpected tier-1 pool: %+v", tr)
	}
}

func TestManager_TraceOnAmbientWin(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 600, RareRetryInterval: 30, AmbientMinInterval: 0}
	sink := &captureSink{}
	cat := &catalog.Catalog{
		Events: []catalog.Event{
			rareEvent("flash", 1, 0, 0, 5, map[string][]string{"weather": {"clear"}}),
			rareEvent("glint", 2, 0, 50, 5, nil),
			ambientEvent("gull", 1, 0, 0, 5),
		},
		Scheduler: cfg,
	}
	m := New(cat, rand.New(rand.NewSource(1)), nil, sink)
	m.Activate(0, Environment{Weather: "cloudy"})

	if ev, ok := m.ActiveEvent(); !ok || ev.Name != "gull" {
		t.Fatalf("expected ambient winner, got ok=%v", ok)
	}
	if len(sink.traces) != 1 {
		t.Fatalf("expected 1 trace, got %d", len(sink.traces))
	}
	tr := sink.traces[0]
	if tr.Chosen != "gull" || tr.ChosenTier != 0 {
		t.Fatalf("unexpected trace: %+v", tr)
	}
	if tr.Rejections["flash"] != "weather mismatch" {
		t.Fatalf("unexpected flash rejection: %+v", tr.Rejections)
	}
	if tr.Rejections["glint"] != "min_runtime" {
		t.Fatalf("unexpected glint rejection: %+v", tr.Rejections)
	}
}

func TestManager_DeterministicUnderSameSeed(t *testing.T) {
	cfg := catalog.SchedulerConfig{RareMinInterval: 120, RareRetryInterval: 10, AmbientMinInterval: 3}
	events := []catalog.Event{
		ambientEvent("gull", 6, 20, 0, 8),
		ambientEvent("wood", 4, 45, 30, 14),
		ambientEvent("sail", 3, 90, 60, 30),
		rareEvent("flash", 1, 200, 100, 6, map[string][]string{"time_of_day": {"sunset"}}),
		rareEvent("glint", 2, 150, 50, 12, nil),
	}
	env := func(now float64) Environment {
		tod := "day"
		if int(now/100)%2 == 1 {
			tod = "sunset"
		}
		return Environment{TimeOfDay: tod, Weather: "clear"}
	}

	run := func() []string {
		cat := &catalog.Catalog{Events: events, Scheduler: cfg}
		m := New(cat, rand.New(rand.NewSource(1337)), nil, nil)
		var out []string
		for now := 0.0; now < 1000; now += 0.5 {
			_, wasActive := m.ActiveEvent()
			m.Update(now, env(now))
			if ev, ok := m.ActiveEvent(); ok && !wasActive {
				out = append(out, ev.Name)
			}
		}
		return out
	}

	first, second := run(), run()
	if len(first) == 0 {
		t.Fatalf("expected activations in a 1000-second run")
	}
	if len(first) != len(second) {
		t.Fatalf("runs diverged: %d vs %d activations", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("activation %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}
