package api

import (
	"math"

	"github.com/open-teleop/console/pkg/gamepad"
)

// Input message types sent by the host environment on /ws/input.
const (
	InputKeyDown   = "key_down"
	InputKeyUp     = "key_up"
	InputFocusLost = "focus_lost"
	InputGamepad   = "gamepad"
)

// InputMessage is one event from the host environment. Gamepad axes and
// buttons may contain nulls for values the controller does not report.
type InputMessage struct {
	Type      string     `json:"type"`
	Code      string     `json:"code,omitempty"`
	Connected bool       `json:"connected,omitempty"`
	Name      string     `json:"name,omitempty"`
	Axes      []*float64 `json:"axes,omitempty"`
	Buttons   []*float64 `json:"buttons,omitempty"`
}

// Snapshot converts a gamepad message, mapping nulls to absent (NaN) values.
func (m InputMessage) Snapshot() gamepad.Snapshot {
	if !m.Connected {
		return gamepad.Disconnected
	}
	return gamepad.Snapshot{
		Connected: true,
		Name:      m.Name,
		Axes:      values(m.Axes),
		Buttons:   values(m.Buttons),
	}
}

func values(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

// State event types pushed on /ws/state.
const (
	EventCommand      = "command"
	EventHealth       = "health"
	EventVehicle      = "vehicle"
	EventNotification = "notification"
)

// StateEvent is one message on the state stream.
type StateEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
