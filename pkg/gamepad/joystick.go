package gamepad

import (
	"context"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"

	customlog "github.com/open-teleop/console/pkg/log"
)

const joystickReadInterval = 5 * time.Millisecond

// JoystickOptions configures a JoystickSource.
type JoystickOptions struct {
	Index             int
	DeadZone          float64
	ReconnectInterval time.Duration
}

type openFunc func(id int) (joystick.Joystick, error)

// JoystickSource reads a local controller through the Linux joystick API
// (/dev/input/js<N>) and keeps the latest standard-layout snapshot.
type JoystickSource struct {
	opts   JoystickOptions
	open   openFunc
	logger customlog.Logger

	mu     sync.RWMutex
	latest Snapshot
}

// NewJoystickSource creates a JoystickSource. Call Run to start reading.
func NewJoystickSource(opts JoystickOptions, logger customlog.Logger) *JoystickSource {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 2 * time.Second
	}
	return &JoystickSource{
		opts:   opts,
		open:   joystick.Open,
		logger: logger.WithField("component", "joystick"),
	}
}

// Poll implements Source.
func (j *JoystickSource) Poll() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.latest
}

func (j *JoystickSource) set(snap Snapshot) {
	j.mu.Lock()
	j.latest = snap
	j.mu.Unlock()
}

// Run opens the device and reads it until ctx is done. A lost device is
// reported as disconnected and reopened every ReconnectInterval.
func (j *JoystickSource) Run(ctx context.Context) {
	for {
		js, err := j.open(j.opts.Index)
		if err != nil {
			j.logger.Debugf("Joystick %d not available: %v", j.opts.Index, err)
		} else {
			j.logger.Infof("Controller found: %s (%d axes, %d buttons)", js.Name(), js.AxisCount(), js.ButtonCount())
			err = j.readLoop(ctx, js)
			js.Close()
			j.set(Disconnected)
			if ctx.Err() != nil {
				return
			}
			j.logger.Warnf("Controller lost: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(j.opts.ReconnectInterval):
		}
	}
}

func (j *JoystickSource) readLoop(ctx context.Context, js joystick.Joystick) error {
	ticker := time.NewTicker(joystickReadInterval)
	defer ticker.Stop()

	name := js.Name()
	buttonCount := js.ButtonCount()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		state, err := js.Read()
		if err != nil {
			return err
		}
		snap := mapXpad(state.AxisData, state.Buttons, buttonCount, j.opts.DeadZone)
		snap.Name = name
		j.set(snap)
	}
}
