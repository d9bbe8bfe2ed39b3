package climate

// DayCycle computes smooth cyclical lighting labels from absolute session
// time. It holds no mutable state: the same timestamp always maps to the
// same position in the cycle.
type DayCycle struct {
	DayLengthSeconds float64
}

const DefaultDayLengthSeconds = 30 * 60.0

func NewDayCycle(dayLengthSeconds float64) DayCycle {
	if dayLengthSeconds <= 0 {
		dayLengthSeconds = DefaultDayLengthSeconds
	}
	return DayCycle{DayLengthSeconds: dayLengthSeconds}
}

func (d DayCycle) progress(sessionTime float64) float64 {
	if d.DayLengthSeconds <= 0 {
		return 0
	}
	p := sessionTime / d.DayLengthSeconds
	return p - float64(int64(p))
}

// TimeOfDay returns the coarse label for the cycle position.
func (d DayCycle) TimeOfDay(sessionTime float64) string {
	p := d.progress(sessionTime)
	switch {
	case p < 0.20:
		return "dawn"
	case p < 0.55:
		return "day"
	case p < 0.75:
		return "sunset"
	default:
		return "night"
	}
}

// lightPoints are (cycle progress, RGBA) keyframes. Values stay soft so the
// scene remains calm and readable.
var lightPoints = []struct {
	p float64
	c [4]float64
}{
	{0.00, [4]float64{24, 16, 8, 14}},
	{0.20, [4]float64{0, 0, 0, 0}},
	{0.55, [4]float64{30, 14, 10, 18}},
	{0.75, [4]float64{12, 18, 34, 44}},
	{1.00, [4]float64{24, 16, 8, 14}},
}

// LightOverlay returns a subtle RGBA tint for the current cycle position.
func (d DayCycle) LightOverlay(sessionTime float64) [4]uint8 {
	p := d.progress(sessionTime)
	for i := 0; i < len(lightPoints)-1; i++ {
		left, right := lightPoints[i], lightPoints[i+1]
		if p < left.p || p > right.p {
			continue
		}
		t := 0.0
		if right.p > left.p {
			t = (p - left.p) / (right.p - left.p)
		}
		blend := smoothstep(t)
		var out [4]uint8
		for ch := 0; ch < 4; ch++ {
			out[ch] = uint8(lerp(left.c[ch], right.c[ch], blend) + 0.5)
		}
		return out
	}
	last := lightPoints[len(lightPoints)-1].c
	return [4]uint8{uint8(last[0]), uint8(last[1]), uint8(last[2]), uint8(last[3])}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func smoothstep(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
