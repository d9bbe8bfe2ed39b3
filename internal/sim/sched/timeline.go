package sched

import "seascape.ai/internal/sim/catalog"

// PhaseSpan is one phase resolved to an absolute [Start, End) interval.
type PhaseSpan struct {
	Phase catalog.Phase
	Start float64
	End   float64
}

// PhaseTimeline maps an event's ordered phases onto absolute session time.
// It is derived purely from the activation timestamp and the declared phase
// durations, never from accumulated per-frame state, so lookups stay correct
// under irregular ticks or a fast-forwarded clock.
type PhaseTimeline []PhaseSpan

// BuildTimeline assigns each phase the interval [cursor, cursor+duration)
// starting at the activation time.
func BuildTimeline(phases []catalog.Phase, start float64) PhaseTimeline {
	if len(phases) == 0 {
		return nil
	}
	out := make(PhaseTimeline, 0, len(phases))
	cursor := start
	for _, p := range phases {
		out = append(out, PhaseSpan{Phase: p, Start: cursor, End: cursor + p.Duration})
		cursor += p.Duration
	}
	return out
}

// PhaseAt returns the phase whose interval contains the timestamp. At or past
// the end of the final phase it returns that final phase, clamped, so a
// renderer never observes a phaseless last frame.
func (t PhaseTimeline) PhaseAt(now float64) (catalog.Phase, bool) {
	for _, span := range t {
		if span.Start <= now && now < span.End {
			return span.Phase, true
		}
	}
	if len(t) > 0 && now >= t[len(t)-1].End {
		return t[len(t)-1].Phase, true
	}
	return catalog.Phase{}, false
}
