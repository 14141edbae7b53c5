package gamepad

import "math"

// Raw layout reported by the Linux xpad driver through the joystick API.
const (
	xpadAxisLeftX        = 0
	xpadAxisLeftY        = 1
	xpadAxisLeftTrigger  = 2
	xpadAxisRightX       = 3
	xpadAxisRightY       = 4
	xpadAxisRightTrigger = 5
	xpadAxisHatX         = 6
	xpadAxisHatY         = 7

	rawAxisMax = 32767
)

// xpadButtons maps raw button bits to standard button indices.
var xpadButtons = []int{
	ButtonA,
	ButtonB,
	ButtonX,
	ButtonY,
	ButtonLeftBumper,
	ButtonRightBumper,
	ButtonBack,
	ButtonStart,
	ButtonGuide,
	ButtonLeftStick,
	ButtonRightStick,
}

// normalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func normalizeAxis(raw int) float64 {
	v := float64(raw) / rawAxisMax
	if v < -1.0 {
		v = -1.0
	}
	if v > 1.0 {
		v = 1.0
	}
	return v
}

// normalizeTrigger converts a raw trigger value (released = -32767) to 0.0..1.0.
func normalizeTrigger(raw int) float64 {
	v := (float64(raw) + rawAxisMax) / (2 * rawAxisMax)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// applyDeadzone returns 0 if the value is within the deadzone threshold.
func applyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

// mapXpad translates raw axis data and the button bitmask into a standard
// layout snapshot. Inputs the device does not report stay absent (NaN).
func mapXpad(axisData []int, buttons uint32, buttonCount int, deadZone float64) Snapshot {
	snap := Snapshot{
		Connected: true,
		Axes:      make([]float64, standardAxisCount),
		Buttons:   make([]float64, standardButtonCount),
	}
	for i := range snap.Axes {
		snap.Axes[i] = math.NaN()
	}
	for i := range snap.Buttons {
		snap.Buttons[i] = math.NaN()
	}

	raw := func(i int) (int, bool) {
		if i < len(axisData) {
			return axisData[i], true
		}
		return 0, false
	}

	sticks := []struct{ from, to int }{
		{xpadAxisLeftX, AxisLeftX},
		{xpadAxisLeftY, AxisLeftY},
		{xpadAxisRightX, AxisRightX},
		{xpadAxisRightY, AxisRightY},
	}
	for _, s := range sticks {
		if v, ok := raw(s.from); ok {
			snap.Axes[s.to] = applyDeadzone(normalizeAxis(v), deadZone)
		}
	}

	if v, ok := raw(xpadAxisLeftTrigger); ok {
		snap.Buttons[ButtonLeftTrigger] = normalizeTrigger(v)
	}
	if v, ok := raw(xpadAxisRightTrigger); ok {
		snap.Buttons[ButtonRightTrigger] = normalizeTrigger(v)
	}

	if v, ok := raw(xpadAxisHatX); ok {
		snap.Buttons[ButtonDPadLeft] = boolValue(v < 0)
		snap.Buttons[ButtonDPadRight] = boolValue(v > 0)
	}
	if v, ok := raw(xpadAxisHatY); ok {
		snap.Buttons[ButtonDPadUp] = boolValue(v < 0)
		snap.Buttons[ButtonDPadDown] = boolValue(v > 0)
	}

	for bit, target := range xpadButtons {
		if bit >= buttonCount {
			break
		}
		snap.Buttons[target] = boolValue(buttons&(1<<uint(bit)) != 0)
	}
	return snap
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
