package teleop

import (
	"github.com/open-teleop/console/pkg/config"
	"github.com/open-teleop/console/pkg/gamepad"
)

// GamepadSampler reads a live snapshot from its source on every sample.
type GamepadSampler struct {
	source gamepad.Source
}

// NewGamepadSampler creates a sampler reading from source. A nil source never
// reports a controller.
func NewGamepadSampler(source gamepad.Source) *GamepadSampler {
	if source == nil {
		source = gamepad.NoSource{}
	}
	return &GamepadSampler{source: source}
}

// Sample polls the source and converts the snapshot using bindings.
func (g *GamepadSampler) Sample(b config.GamepadBindings) MovementCommand {
	return SampleGamepad(b, g.source.Poll())
}

// SampleGamepad converts one snapshot into a clamped command. Absent values and
// unparsable bindings contribute zero.
func SampleGamepad(b config.GamepadBindings, snap gamepad.Snapshot) MovementCommand {
	if !snap.Connected {
		return ZeroCommand
	}

	var cmd MovementCommand
	cmd[Surge], cmd[Sway] = sourcePair(b.MoveHorizontal, snap)
	cmd[Pitch], cmd[Yaw] = sourcePair(b.PitchYaw, snap)

	button := func(raw string) float64 {
		idx, ok := config.ParseButtonIndex(raw)
		if !ok {
			return 0
		}
		v, _ := snap.Button(idx)
		return v
	}
	cmd[Heave] = button(b.MoveUp) - button(b.MoveDown)
	cmd[Roll] = button(b.RollRight) - button(b.RollLeft)

	return cmd.Clamp()
}

// sourcePair reads the (forward, right) pair of one control source.
func sourcePair(raw config.ControlSource, snap gamepad.Snapshot) (float64, float64) {
	src, ok := config.ParseControlSource(string(raw))
	if !ok {
		return 0, 0
	}

	axis := func(i int) float64 {
		v, _ := snap.Axis(i)
		return v
	}
	button := func(i int) float64 {
		v, _ := snap.Button(i)
		return v
	}

	switch src {
	case config.LeftStick:
		return -axis(gamepad.AxisLeftY), axis(gamepad.AxisLeftX)
	case config.RightStick:
		return -axis(gamepad.AxisRightY), axis(gamepad.AxisRightX)
	case config.DPad:
		return button(gamepad.ButtonDPadUp) - button(gamepad.ButtonDPadDown),
			button(gamepad.ButtonDPadRight) - button(gamepad.ButtonDPadLeft)
	case config.FaceButtons:
		// Legacy console bindings used (b0-b2, b1-b3); this follows the physical diamond.
		return button(gamepad.ButtonY) - button(gamepad.ButtonA),
			button(gamepad.ButtonB) - button(gamepad.ButtonX)
	}
	return 0, 0
}
