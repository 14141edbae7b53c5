package teleop

import (
	"math"
	"testing"

	"github.com/open-teleop/console/pkg/config"
	"github.com/open-teleop/console/pkg/gamepad"
)

func connected(axes []float64, buttons map[int]float64) gamepad.Snapshot {
	b := make([]float64, 17)
	for i, v := range buttons {
		b[i] = v
	}
	return gamepad.Snapshot{Connected: true, Axes: axes, Buttons: b}
}

func TestGamepadAbsentController(t *testing.T) {
	got := SampleGamepad(config.DefaultGamepadBindings(), gamepad.Disconnected)
	if got != ZeroCommand {
		t.Errorf("Expected zero without controller, got %v", got)
	}

	sampler := NewGamepadSampler(nil)
	if got := sampler.Sample(config.DefaultGamepadBindings()); got != ZeroCommand {
		t.Errorf("Expected zero from nil source, got %v", got)
	}
}

func TestGamepadLeftStickDrivesSurgeAndSway(t *testing.T) {
	b := config.DefaultGamepadBindings()
	b.MoveHorizontal = config.LeftStick

	snap := connected([]float64{0.5, -1.0, 0, 0}, nil)
	got := SampleGamepad(b, snap)

	if got[Surge] != 1.0 {
		t.Errorf("Surge = %v, want 1.0", got[Surge])
	}
	if got[Sway] != 0.5 {
		t.Errorf("Sway = %v, want 0.5", got[Sway])
	}
}

func TestGamepadRightStickDrivesPitchYaw(t *testing.T) {
	b := config.DefaultGamepadBindings()
	snap := connected([]float64{0, 0, -0.25, 0.75}, nil)

	got := SampleGamepad(b, snap)
	if got[Pitch] != -0.75 || got[Yaw] != -0.25 {
		t.Errorf("Pitch/yaw = %v/%v, want -0.75/-0.25", got[Pitch], got[Yaw])
	}
}

func TestGamepadDPadAndFaceButtons(t *testing.T) {
	b := config.GamepadBindings{
		MoveHorizontal: config.DPad,
		PitchYaw:       config.FaceButtons,
		MoveUp:         "7",
		MoveDown:       "6",
		RollLeft:       "4",
		RollRight:      "5",
	}
	snap := connected(nil, map[int]float64{
		gamepad.ButtonDPadUp:       1,
		gamepad.ButtonDPadLeft:     1,
		gamepad.ButtonY:            0.5,
		gamepad.ButtonB:            1,
		gamepad.ButtonX:            0.25,
		gamepad.ButtonRightTrigger: 0.8,
		gamepad.ButtonLeftTrigger:  0.3,
		gamepad.ButtonLeftBumper:   1,
	})

	got := SampleGamepad(b, snap)
	want := MovementCommand{
		Surge: 1,
		Sway:  -1,
		Heave: 0.8 - 0.3,
		Pitch: 0.5,
		Yaw:   0.75,
		Roll:  -1,
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s = %v, want %v", Axis(i), got[i], want[i])
		}
	}
}

func TestGamepadMalformedBindingsDegrade(t *testing.T) {
	b := config.GamepadBindings{
		MoveHorizontal: "Trackball",
		PitchYaw:       config.RightStick,
		MoveUp:         "RT",
		MoveDown:       "-2",
		RollLeft:       "40",
		RollRight:      "5",
	}
	snap := connected([]float64{1, 1}, map[int]float64{5: 1, 7: 1})

	got := SampleGamepad(b, snap)
	want := MovementCommand{Roll: 1}
	if got != want {
		t.Errorf("SampleGamepad = %v, want %v", got, want)
	}
}

func TestGamepadDiagonalIsClamped(t *testing.T) {
	b := config.DefaultGamepadBindings()
	b.PitchYaw = config.LeftStick

	snap := connected([]float64{3, -3}, map[int]float64{7: 1, 6: 0})
	got := SampleGamepad(b, snap)
	for axis, v := range got {
		if v < -1 || v > 1 {
			t.Errorf("%s out of range: %v", Axis(axis), v)
		}
	}
	if got[Surge] != 1 || got[Pitch] != 1 || got[Heave] != 1 {
		t.Errorf("Unexpected clamped command %v", got)
	}
}
