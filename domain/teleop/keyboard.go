package teleop

import (
	"sort"
	"sync"

	"github.com/open-teleop/console/pkg/config"
)

// KeyboardSampler owns the set of currently pressed keys. Key events may arrive
// from any goroutine while the control loop samples.
type KeyboardSampler struct {
	mu      sync.Mutex
	pressed map[string]struct{}
}

// NewKeyboardSampler creates an empty sampler.
func NewKeyboardSampler() *KeyboardSampler {
	return &KeyboardSampler{pressed: make(map[string]struct{})}
}

// KeyDown records key as pressed.
func (k *KeyboardSampler) KeyDown(key string) {
	if key == "" {
		return
	}
	k.mu.Lock()
	k.pressed[key] = struct{}{}
	k.mu.Unlock()
}

// KeyUp records key as released.
func (k *KeyboardSampler) KeyUp(key string) {
	k.mu.Lock()
	delete(k.pressed, key)
	k.mu.Unlock()
}

// FocusLost releases every key. A key released while the input surface is not
// focused never produces a KeyUp.
func (k *KeyboardSampler) FocusLost() {
	k.mu.Lock()
	clear(k.pressed)
	k.mu.Unlock()
}

// Pressed returns the pressed keys in sorted order.
func (k *KeyboardSampler) Pressed() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, len(k.pressed))
	for key := range k.pressed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Sample converts the pressed set into a command using bindings.
func (k *KeyboardSampler) Sample(b config.KeyBindings) MovementCommand {
	k.mu.Lock()
	defer k.mu.Unlock()

	axis := func(positive, negative string) float64 {
		return k.held(positive) - k.held(negative)
	}
	return MovementCommand{
		Surge: axis(b.MoveForward, b.MoveBackward),
		Sway:  axis(b.MoveRight, b.MoveLeft),
		Heave: axis(b.MoveUp, b.MoveDown),
		Pitch: axis(b.PitchUp, b.PitchDown),
		Yaw:   axis(b.YawRight, b.YawLeft),
		Roll:  axis(b.RollRight, b.RollLeft),
	}
}

// held reports 1 when key is bound and pressed. Caller holds mu.
func (k *KeyboardSampler) held(key string) float64 {
	if key == "" {
		return 0
	}
	if _, ok := k.pressed[key]; ok {
		return 1
	}
	return 0
}
