package sched

import (
	"math/rand"

	"seascape.ai/internal/sim/catalog"
)

// TriggerClock is notified whenever an event activates, so the session timer
// can reset its time-since-last-event signal.
type TriggerClock interface {
	MarkEventTriggered()
}

// RenderState holds per-instance numeric parameters generated once at
// activation for events whose visuals want per-run variation. Discarded when
// the event expires.
type RenderState struct {
	DriftPhase   float64 // radians, offsets the horizontal bob
	BobAmplitude float64 // pixels
	Shimmer      float64 // 0..1 blend factor
}

// Manager owns the single active-event slot and all scheduler clocks.
//
// At most one event is active at any time. Every gate (cooldowns, rare/ambient
// spacing, minimum runtime) is a comparison against absolute session
// timestamps, so the manager is driven correctly by irregular ticks or a
// simulated clock. The injected rng is the only source of randomness.
type Manager struct {
	cfg catalog.SchedulerConfig
	rng *rand.Rand

	tier1   []catalog.Event
	tier2   []catalog.Event
	ambient []catalog.Event

	clock TriggerClock
	trace TraceSink

	active      *catalog.Event
	activeStart float64
	activeEnd   float64
	timeline    PhaseTimeline
	render      RenderState

	lastTrigger      map[string]float64
	nextRareCheck    float64
	lastAmbient      float64
	ambientTriggered bool
}

// New builds a manager over the catalogue partitions. clock and trace may be
// nil. The rng must not be shared with any other component.
func New(cat *catalog.Catalog, rng *rand.Rand, clock TriggerClock, trace TraceSink) *Manager {
	return &Manager{
		cfg:         cat.Scheduler,
		rng:         rng,
		tier1:       cat.RareTier(1),
		tier2:       cat.RareTier(2),
		ambient:     cat.Ambient(),
		clock:       clock,
		trace:       trace,
		lastTrigger: map[string]float64{},
	}
}

// ActiveEvent returns the active event, if any.
func (m *Manager) ActiveEvent() (catalog.Event, bool) {
	if m.active == nil {
		return catalog.Event{}, false
	}
	return *m.active, true
}

// CurrentPhase returns the phase active at the given session time. Events
// without phases report none.
func (m *Manager) CurrentPhase(now float64) (catalog.Phase, bool) {
	if m.active == nil {
		return catalog.Phase{}, false
	}
	return m.timeline.PhaseAt(now)
}

// ActiveWindow returns the absolute [start, end) of the active event.
func (m *Manager) ActiveWindow() (start, end float64, ok bool) {
	if m.active == nil {
		return 0, 0, false
	}
	return m.activeStart, m.activeEnd, true
}

// RenderParams returns the per-instance render parameters of the active event.
func (m *Manager) RenderParams() (RenderState, bool) {
	if m.active == nil {
		return RenderState{}, false
	}
	return m.render, true
}

// Update drives the lifecycle one step: schedule when idle, expire when the
// end timestamp has been reached.
func (m *Manager) Update(now float64, env Environment) {
	if m.active == nil {
		m.Activate(now, env)
		return
	}
	if now >= m.activeEnd {
		m.active = nil
		m.activeStart = 0
		m.activeEnd = 0
		m.timeline = nil
		m.render = RenderState{}
	}
}

// Activate runs tier arbitration and starts the winner, if any. A no-op while
// an event is already active.
func (m *Manager) Activate(now float64, env Environment) {
	if m.active != nil {
		return
	}
	ev, ok := m.arbitrate(now, env)
	if !ok {
		return
	}
	m.start(now, ev)
}

// arbitrate picks the next event: rare tier 1 strictly dominates tier 2,
// and any rare winner preempts ambient selection. A rare check that finds
// nothing eligible reschedules itself after the short retry interval; only a
// successful rare activation imposes the long rare spacing. When a checked
// rare slot loses to an ambient activation the retry clock still advances by
// the short interval, so the rare slot is revisited promptly.
func (m *Manager) arbitrate(now float64, env Environment) (catalog.Event, bool) {
	rareChecked := false
	var tr *ArbitrationTrace

	if now >= m.nextRareCheck {
		rareChecked = true
		if m.trace != nil {
			tr = &ArbitrationTrace{SessionTime: now, Rejections: map[string]string{}}
		}

		pool := m.eligiblePool(m.tier1, now, env, tr, 1)
		tier := 1
		if len(pool) == 0 {
			pool = m.eligiblePool(m.tier2, now, env, tr, 2)
			tier = 2
		}
		if len(pool) > 0 {
			winner := pickWeighted(m.rng, pool)
			m.nextRareCheck = now + m.cfg.RareMinInterval
			if tr != nil {
				tr.Chosen = winner.Name
				tr.ChosenTier = tier
				m.trace.RecordArbitration(*tr)
			}
			return winner, true
		}
		m.nextRareCheck = now + m.cfg.RareRetryInterval
	}

	if !m.ambientTriggered || now-m.lastAmbient >= m.cfg.AmbientMinInterval {
		pool := m.eligiblePool(m.ambient, now, env, nil, 0)
		if len(pool) > 0 {
			winner := pickWeighted(m.rng, pool)
			m.lastAmbient = now
			m.ambientTriggered = true
			if rareChecked {
				m.nextRareCheck = now + m.cfg.RareRetryInterval
			}
			if tr != nil {
				// Rare slot was checked and lost to ambient.
				tr.Chosen = winner.Name
				tr.ChosenTier = 0
				m.trace.RecordArbitration(*tr)
			}
			return winner, true
		}
	}

	if tr != nil {
		m.trace.RecordArbitration(*tr)
	}
	return catalog.Event{}, false
}

func (m *Manager) eligiblePool(events []catalog.Event, now float64, env Environment, tr *ArbitrationTrace, tier int) []catalog.Event {
	var pool []catalog.Event
	for _, ev := range events {
		if m.IsEligible(ev, now, env) {
			pool = append(pool, ev)
			if tr != nil {
				switch tier {
				case 1:
					tr.Tier1Eligible = append(tr.Tier1Eligible, ev.Name)
				case 2:
					tr.Tier2Eligible = append(tr.Tier2Eligible, ev.Name)
				}
			}
			continue
		}
		if tr != nil {
			tr.Rejections[ev.Name] = m.rejectionReasons(ev, now, env)
		}
	}
	return pool
}

func (m *Manager) start(now float64, ev catalog.Event) {
	m.active = &ev
	m.activeStart = now
	m.activeEnd = now + ev.Duration
	m.timeline = BuildTimeline(ev.Phases, now)
	m.render = RenderState{
		DriftPhase:   m.rng.Float64() * 6.283185307179586,
		BobAmplitude: 1 + m.rng.Float64()*2,
		Shimmer:      m.rng.Float64(),
	}
	m.lastTrigger[ev.Name] = now
	if m.clock != nil {
		m.clock.MarkEventTriggered()
	}
}
