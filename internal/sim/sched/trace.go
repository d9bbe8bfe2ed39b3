package sched

// ArbitrationTrace describes one rare-slot arbitration: who was eligible per
// tier, who won, and why the other rare events were passed over. Intended
// for offline analysis; the scheduler never reads it back.
type ArbitrationTrace struct {
	SessionTime   float64           `json:"session_time"`
	Tier1Eligible []string          `json:"tier1_eligible,omitempty"`
	Tier2Eligible []string          `json:"tier2_eligible,omitempty"`
	Chosen        string            `json:"chosen,omitempty"`
	ChosenTier    int               `json:"chosen_tier,omitempty"`
	Rejections    map[string]string `json:"rejections,omitempty"`
}

// TraceSink receives arbitration traces. Implementations must not block the
// tick loop; dropping records under pressure is acceptable.
type TraceSink interface {
	RecordArbitration(tr ArbitrationTrace)
}
