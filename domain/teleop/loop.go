package teleop

import (
	"context"
	"sync"
	"time"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// LoopState is the lifecycle state of a Loop.
type LoopState int

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopStopped
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopStopped:
		return "stopped"
	}
	return "unknown"
}

// BindingsProvider exposes the current bindings. It is read on every tick.
type BindingsProvider interface {
	GetCurrentConfig() *config.Config
}

// CommandTransmitter is what the loop needs from a Transmitter.
type CommandTransmitter interface {
	Send(cmd MovementCommand)
	SendFinal(ctx context.Context, cmd MovementCommand) error
}

// Loop samples both input sources at a fixed cadence, fuses them, publishes
// the result and hands it to the transmitter. A Loop runs once: Stopped is
// terminal.
type Loop struct {
	keyboard *KeyboardSampler
	gamepad  *GamepadSampler
	state    *CommandState
	interval time.Duration
	logger   customlog.Logger

	mu       sync.Mutex
	status   LoopState
	tx       CommandTransmitter
	cancel   context.CancelFunc
	done     chan struct{} // closed when the tick goroutine exits
	finished chan struct{} // closed when Stop has sent the final command
	finalErr error
	ticks    uint64
}

// NewLoop creates an idle loop.
func NewLoop(keyboard *KeyboardSampler, gamepad *GamepadSampler, state *CommandState, interval time.Duration, logger customlog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Loop{
		keyboard: keyboard,
		gamepad:  gamepad,
		state:    state,
		interval: interval,
		logger:   logger.WithField("component", "loop"),
		finished: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Start moves the loop from Idle to Running. The first tick runs immediately.
func (l *Loop) Start(bindings BindingsProvider, tx CommandTransmitter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.status {
	case LoopRunning:
		return ErrLoopRunning
	case LoopStopped:
		return ErrLoopStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.tx = tx
	l.done = make(chan struct{})
	l.status = LoopRunning

	go l.run(ctx, bindings, tx, l.done)

	l.logger.Infof("Control loop started at %v per tick", l.interval)
	return nil
}

func (l *Loop) run(ctx context.Context, bindings BindingsProvider, tx CommandTransmitter, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		l.tick(bindings, tx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (l *Loop) tick(bindings BindingsProvider, tx CommandTransmitter) {
	cfg := bindings.GetCurrentConfig()
	if cfg == nil {
		cfg = &config.Config{}
	}

	keyboardCmd := l.keyboard.Sample(cfg.Keyboard)
	gamepadCmd := l.gamepad.Sample(cfg.Gamepad)
	cmd := Fuse(keyboardCmd, gamepadCmd)

	l.state.Publish(cmd)
	tx.Send(cmd)

	l.mu.Lock()
	l.ticks++
	l.mu.Unlock()
}

// Stop moves the loop to Stopped. From Running it cancels the schedule, waits
// for the tick goroutine to exit, publishes the zero command and transmits it
// once. Calling Stop again waits for that to finish and returns the same result.
// Stopping an idle loop transmits nothing.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	switch l.status {
	case LoopIdle:
		l.status = LoopStopped
		close(l.finished)
		l.mu.Unlock()
		return nil
	case LoopStopped:
		finished := l.finished
		l.mu.Unlock()
		select {
		case <-finished:
		case <-ctx.Done():
			return ctx.Err()
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.finalErr
	}

	l.status = LoopStopped
	cancel, done, tx := l.cancel, l.done, l.tx
	l.mu.Unlock()

	cancel()
	<-done

	l.state.Publish(ZeroCommand)
	err := tx.SendFinal(ctx, ZeroCommand)
	if err != nil {
		l.logger.Warnf("Final zero command failed: %v", err)
	} else {
		l.logger.Infof("Control loop stopped, zero command sent")
	}

	l.mu.Lock()
	l.finalErr = err
	close(l.finished)
	l.mu.Unlock()
	return err
}
