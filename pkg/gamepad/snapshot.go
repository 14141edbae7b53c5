// Package gamepad supplies per-tick gamepad snapshots in the standard layout
// (axes 0..3 = left X, left Y, right X, right Y; buttons 0..3 = A, B, X, Y,
// 4/5 bumpers, 6/7 triggers, 12..15 D-pad up, down, left, right).
package gamepad

import "math"

// Standard layout indices.
const (
	AxisLeftX  = 0
	AxisLeftY  = 1
	AxisRightX = 2
	AxisRightY = 3

	ButtonA            = 0
	ButtonB            = 1
	ButtonX            = 2
	ButtonY            = 3
	ButtonLeftBumper   = 4
	ButtonRightBumper  = 5
	ButtonLeftTrigger  = 6
	ButtonRightTrigger = 7
	ButtonBack         = 8
	ButtonStart        = 9
	ButtonLeftStick    = 10
	ButtonRightStick   = 11
	ButtonDPadUp       = 12
	ButtonDPadDown     = 13
	ButtonDPadLeft     = 14
	ButtonDPadRight    = 15
	ButtonGuide        = 16

	standardButtonCount = 17
	standardAxisCount   = 4
)

// Snapshot is a read-only view of one controller at one instant. Axis values
// are in [-1,1], button values in [0,1]. A NaN entry means the value is absent.
type Snapshot struct {
	Connected bool      `json:"connected"`
	Name      string    `json:"name,omitempty"`
	Axes      []float64 `json:"axes"`
	Buttons   []float64 `json:"buttons"`
}

// Disconnected is the snapshot reported when no controller is present.
var Disconnected = Snapshot{}

// Axis returns axis i, or false when it is absent.
func (s Snapshot) Axis(i int) (float64, bool) {
	return lookup(s.Axes, i)
}

// Button returns the analog value of button i, or false when it is absent.
func (s Snapshot) Button(i int) (float64, bool) {
	return lookup(s.Buttons, i)
}

func lookup(values []float64, i int) (float64, bool) {
	if i < 0 || i >= len(values) {
		return 0, false
	}
	v := values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Source provides the current snapshot. Poll must not block.
type Source interface {
	Poll() Snapshot
}

// NoSource never reports a controller.
type NoSource struct{}

// Poll implements Source.
func (NoSource) Poll() Snapshot { return Disconnected }
