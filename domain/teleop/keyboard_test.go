package teleop

import (
	"sync"
	"testing"

	"github.com/open-teleop/console/pkg/config"
)

func TestKeyboardOppositeKeysCancel(t *testing.T) {
	kb := NewKeyboardSampler()
	bindings := config.KeyBindings{MoveForward: "KeyW", MoveBackward: "KeyS"}

	kb.KeyDown("KeyW")
	if got := kb.Sample(bindings); got != (MovementCommand{1, 0, 0, 0, 0, 0}) {
		t.Errorf("Forward only: got %v", got)
	}

	kb.KeyDown("KeyS")
	if got := kb.Sample(bindings); got != ZeroCommand {
		t.Errorf("Opposite keys should cancel: got %v", got)
	}

	kb.KeyUp("KeyW")
	if got := kb.Sample(bindings); got != (MovementCommand{-1, 0, 0, 0, 0, 0}) {
		t.Errorf("Backward only: got %v", got)
	}

	kb.KeyUp("KeyS")
	if got := kb.Sample(bindings); got != ZeroCommand {
		t.Errorf("All released: got %v", got)
	}
}

func TestKeyboardAllAxes(t *testing.T) {
	kb := NewKeyboardSampler()
	bindings := config.DefaultKeyBindings()

	for _, key := range []string{"KeyD", "Space", "ArrowDown", "ArrowRight", "KeyQ", "KeyZ"} {
		kb.KeyDown(key)
	}

	want := MovementCommand{Surge: 0, Sway: 1, Heave: 1, Pitch: -1, Yaw: 1, Roll: -1}
	if got := kb.Sample(bindings); got != want {
		t.Errorf("Sample = %v, want %v", got, want)
	}
}

func TestKeyboardFocusLostClearsKeys(t *testing.T) {
	kb := NewKeyboardSampler()
	bindings := config.DefaultKeyBindings()

	kb.KeyDown("KeyW")
	kb.KeyDown("KeyE")
	kb.FocusLost()

	if got := kb.Sample(bindings); got != ZeroCommand {
		t.Errorf("Expected zero after focus lost, got %v", got)
	}
	if len(kb.Pressed()) != 0 {
		t.Errorf("Pressed set not cleared: %v", kb.Pressed())
	}
}

func TestKeyboardUnboundAndEmptyKeys(t *testing.T) {
	kb := NewKeyboardSampler()
	kb.KeyDown("")
	kb.KeyDown("F13")

	// An empty binding must not match anything.
	if got := kb.Sample(config.KeyBindings{}); got != ZeroCommand {
		t.Errorf("Empty bindings should sample zero, got %v", got)
	}
	if got := kb.Pressed(); len(got) != 1 || got[0] != "F13" {
		t.Errorf("Unexpected pressed set %v", got)
	}
}

func TestKeyboardConcurrentEvents(t *testing.T) {
	kb := NewKeyboardSampler()
	bindings := config.DefaultKeyBindings()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				kb.KeyDown("KeyW")
				kb.KeyUp("KeyW")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				cmd := kb.Sample(bindings)
				if cmd[Surge] != 0 && cmd[Surge] != 1 {
					t.Errorf("Unexpected surge %v", cmd[Surge])
					return
				}
			}
		}()
	}
	wg.Wait()
}
