package gamepad

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/0xcafed00d/joystick"

	customlog "github.com/open-teleop/console/pkg/log"
)

func TestSnapshotAbsentValues(t *testing.T) {
	snap := Snapshot{Connected: true, Axes: []float64{0.5, math.NaN()}, Buttons: []float64{1}}

	if v, ok := snap.Axis(0); !ok || v != 0.5 {
		t.Errorf("Axis(0) = (%v, %v), want (0.5, true)", v, ok)
	}
	if _, ok := snap.Axis(1); ok {
		t.Errorf("NaN axis should be absent")
	}
	if _, ok := snap.Axis(7); ok {
		t.Errorf("Out of range axis should be absent")
	}
	if _, ok := snap.Button(-1); ok {
		t.Errorf("Negative index should be absent")
	}
}

func TestMapXpad(t *testing.T) {
	axes := []int{32767, -32767, 32767, 0, 1000, -32767, -32767, 32767}
	buttons := uint32(1<<0 | 1<<4 | 1<<10)

	snap := mapXpad(axes, buttons, 11, 0.05)

	if !snap.Connected {
		t.Fatalf("Expected connected snapshot")
	}
	if v, _ := snap.Axis(AxisLeftX); v != 1 {
		t.Errorf("Left X = %v, want 1", v)
	}
	if v, _ := snap.Axis(AxisLeftY); v != -1 {
		t.Errorf("Left Y = %v, want -1", v)
	}
	if v, _ := snap.Axis(AxisRightX); v != 0 {
		t.Errorf("Right X = %v, want 0", v)
	}
	// 1000/32767 is inside the dead zone.
	if v, _ := snap.Axis(AxisRightY); v != 0 {
		t.Errorf("Right Y = %v, want 0 after dead zone", v)
	}
	if v, _ := snap.Button(ButtonLeftTrigger); v != 1 {
		t.Errorf("Left trigger = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonRightTrigger); v != 0 {
		t.Errorf("Right trigger = %v, want 0", v)
	}
	if v, _ := snap.Button(ButtonDPadLeft); v != 1 {
		t.Errorf("D-pad left = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonDPadDown); v != 1 {
		t.Errorf("D-pad down = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonDPadUp); v != 0 {
		t.Errorf("D-pad up = %v, want 0", v)
	}
	if v, _ := snap.Button(ButtonA); v != 1 {
		t.Errorf("A = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonLeftBumper); v != 1 {
		t.Errorf("LB = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonRightStick); v != 1 {
		t.Errorf("RS = %v, want 1", v)
	}
	if v, _ := snap.Button(ButtonB); v != 0 {
		t.Errorf("B = %v, want 0", v)
	}
}

func TestMapXpadShortDevice(t *testing.T) {
	snap := mapXpad([]int{0, 0}, 0, 4, 0)
	if _, ok := snap.Axis(AxisRightX); ok {
		t.Errorf("Right stick should be absent on a two-axis device")
	}
	if _, ok := snap.Button(ButtonDPadUp); ok {
		t.Errorf("D-pad should be absent without hat axes")
	}
	if _, ok := snap.Button(ButtonLeftBumper); ok {
		t.Errorf("Bumper should be absent on a four-button device")
	}
	if _, ok := snap.Button(ButtonY); !ok {
		t.Errorf("Y should be present on a four-button device")
	}
}

func TestRemoteSourceStaleness(t *testing.T) {
	now := time.Unix(1000, 0)
	src := NewRemoteSource(500 * time.Millisecond)
	src.now = func() time.Time { return now }

	if src.Poll().Connected {
		t.Fatalf("New source should report no controller")
	}

	src.Update(Snapshot{Connected: true, Axes: []float64{0.3}})
	if !src.Poll().Connected {
		t.Errorf("Fresh snapshot should be reported")
	}

	now = now.Add(501 * time.Millisecond)
	if src.Poll().Connected {
		t.Errorf("Stale snapshot should be reported as disconnected")
	}

	src.Update(Snapshot{Connected: true})
	src.Clear()
	if src.Poll().Connected {
		t.Errorf("Cleared source should report no controller")
	}
}

type fakeJoystick struct {
	mu     sync.Mutex
	state  joystick.State
	err    error
	closed bool
}

func (f *fakeJoystick) AxisCount() int   { return len(f.state.AxisData) }
func (f *fakeJoystick) ButtonCount() int { return 11 }
func (f *fakeJoystick) Name() string     { return "Fake Pad" }
func (f *fakeJoystick) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
func (f *fakeJoystick) Read() (joystick.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

func TestJoystickSourceReadsAndLosesDevice(t *testing.T) {
	dev := &fakeJoystick{state: joystick.State{AxisData: []int{0, -32767}, Buttons: 1 << 3}}
	src := NewJoystickSource(JoystickOptions{Index: 0, ReconnectInterval: time.Hour}, customlog.NewNopLogger())
	src.open = func(id int) (joystick.Joystick, error) { return dev, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		src.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, func() bool { return src.Poll().Connected })
	snap := src.Poll()
	if v, _ := snap.Axis(AxisLeftY); v != -1 {
		t.Errorf("Left Y = %v, want -1", v)
	}
	if v, _ := snap.Button(ButtonY); v != 1 {
		t.Errorf("Y = %v, want 1", v)
	}
	if snap.Name != "Fake Pad" {
		t.Errorf("Unexpected name %q", snap.Name)
	}

	dev.mu.Lock()
	dev.err = errors.New("device unplugged")
	dev.mu.Unlock()

	waitFor(t, func() bool { return !src.Poll().Connected })
	dev.mu.Lock()
	closed := dev.closed
	dev.mu.Unlock()
	if !closed {
		t.Errorf("Lost device should be closed")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within 1s")
}
