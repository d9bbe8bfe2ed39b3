package protocol

// Version of the observer wire protocol.
const Version = "1.0"

// Client -> Server. First message on the observer WS connection; can be
// re-sent to change the streaming cadence.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Stream every Nth tick. Zero means every tick.
	EveryTicks int `json:"every_ticks,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	Seed            int64          `json:"seed"`
	TickRateHz      int            `json:"tick_rate_hz"`
	DayLengthSecs   float64        `json:"day_length_seconds"`
	CatalogDigest   string         `json:"catalog_digest"`
	Events          []EventSummary `json:"events"`
}

type EventSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Weight   int    `json:"weight"`
	RareTier int    `json:"rare_tier,omitempty"`
}

// Server -> Client. One frame of renderer-facing scene state.
type SceneMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	SessionTime     float64 `json:"session_time"`

	TimeOfDay    string   `json:"time_of_day"`
	Weather      string   `json:"weather"`
	LightOverlay [4]uint8 `json:"light_overlay"`
	WeatherTint  [4]uint8 `json:"weather_tint"`

	Active *ActiveEvent `json:"active,omitempty"`
}

type ActiveEvent struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Color    [3]uint8   `json:"color"`
	Start    float64    `json:"start"`
	End      float64    `json:"end"`
	Progress float64    `json:"progress"`
	Phase    string     `json:"phase,omitempty"`
	Render   RenderHint `json:"render"`
}

// RenderHint carries the per-instance randomized parameters generated at
// activation.
type RenderHint struct {
	DriftPhase   float64 `json:"drift_phase"`
	BobAmplitude float64 `json:"bob_amplitude"`
	Shimmer      float64 `json:"shimmer"`
}

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeScene     = "SCENE"
)
