// internal/driver/aillio/steps.go
package aillio

// Setting bounds, enforced by clamping on every setpoint request.
const (
	HeaterMin = 0
	HeaterMax = 9
	FanMin    = 1
	FanMax    = 12
	DrumMin   = 1
	DrumMax   = 9
)

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stepPlan translates an absolute target into the ordered signed unit
// steps the device's step-only protocol needs. The target is clamped to
// [lo, hi] first; an empty plan means the setting is already there.
func stepPlan(current, target, lo, hi int) []int {
	diff := clamp(target, lo, hi) - current
	if diff == 0 {
		return nil
	}
	step := 1
	if diff < 0 {
		step = -1
		diff = -diff
	}
	steps := make([]int, diff)
	for i := range steps {
		steps[i] = step
	}
	return steps
}
