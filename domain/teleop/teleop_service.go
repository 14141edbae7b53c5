package teleop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/observable"
)

const stopTimeout = 2 * time.Second

// Notification is a user-facing message, e.g. a surfaced transmit failure.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// TransmitterControl is the Transmitter surface the service needs.
type TransmitterControl interface {
	CommandTransmitter
	Stats() TransmitStats
}

// TeleopService owns the control loop. A Loop is single-use, so Start creates
// a fresh one each time and a configuration change restarts it.
type TeleopService struct {
	bindings BindingsProvider
	keyboard *KeyboardSampler
	gamepad  *GamepadSampler
	state    *CommandState
	tx       TransmitterControl
	interval time.Duration
	logger   customlog.Logger
	notices  *observable.Value[Notification]

	mu   sync.Mutex
	loop *Loop
}

// NewTeleopService creates a new teleop service instance
func NewTeleopService(
	bindings BindingsProvider,
	keyboard *KeyboardSampler,
	gamepad *GamepadSampler,
	tx TransmitterControl,
	interval time.Duration,
	logger customlog.Logger,
) *TeleopService {
	return &TeleopService{
		bindings: bindings,
		keyboard: keyboard,
		gamepad:  gamepad,
		state:    NewCommandState(),
		tx:       tx,
		interval: interval,
		logger:   logger.WithField("component", "teleop"),
		notices:  observable.NewValue(Notification{}),
	}
}

// Keyboard returns the keyboard sampler fed by input events.
func (s *TeleopService) Keyboard() *KeyboardSampler { return s.keyboard }

// CommandState returns the shared command state.
func (s *TeleopService) CommandState() *CommandState { return s.state }

// Notifications streams user-facing notifications, latest wins.
func (s *TeleopService) Notifications() (<-chan Notification, func()) {
	return s.notices.Subscribe()
}

// Notify publishes a notification to UI subscribers.
func (s *TeleopService) Notify(level, message string) {
	s.notices.Set(Notification{Level: level, Message: message, Time: time.Now()})
}

// ReportTransmitFailure is registered with the transmitter as its FailureReporter.
func (s *TeleopService) ReportTransmitFailure(err error) {
	s.Notify("error", err.Error())
}

// Start arms the console: a new control loop begins ticking.
func (s *TeleopService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil && s.loop.State() == LoopRunning {
		return ErrLoopRunning
	}
	loop := NewLoop(s.keyboard, s.gamepad, s.state, s.interval, s.logger)
	if err := loop.Start(s.bindings, s.tx); err != nil {
		return err
	}
	s.loop = loop
	return nil
}

// Stop disarms the console. The vehicle receives a final zero command.
func (s *TeleopService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *TeleopService) stopLocked(ctx context.Context) error {
	if s.loop == nil {
		return nil
	}
	return s.loop.Stop(ctx)
}

// Running reports whether a control loop is ticking.
func (s *TeleopService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop != nil && s.loop.State() == LoopRunning
}

// ConfigUpdated restarts a running loop after a bindings change so the vehicle
// sees a zero command between the old and new bindings.
func (s *TeleopService) ConfigUpdated(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil || s.loop.State() != LoopRunning {
		return
	}
	s.logger.Infof("Bindings changed (config %s), restarting control loop", cfg.ConfigID)

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.stopLocked(ctx); err != nil {
		s.logger.Warnf("Stopping loop for restart: %v", err)
	}

	loop := NewLoop(s.keyboard, s.gamepad, s.state, s.interval, s.logger)
	if err := loop.Start(s.bindings, s.tx); err != nil {
		s.logger.Errorf("Failed to restart control loop: %v", err)
		return
	}
	s.loop = loop
	s.Notify("info", "Configuration updated")
}

// Status describes the service for the API.
type Status struct {
	State    string          `json:"state"`
	Command  MovementCommand `json:"command"`
	Pressed  []string        `json:"pressed_keys"`
	Ticks    uint64          `json:"ticks"`
	Transmit TransmitStats   `json:"transmit"`
}

// Status returns the current loop state and latest command.
func (s *TeleopService) Status() Status {
	s.mu.Lock()
	state, ticks := LoopIdle, uint64(0)
	if s.loop != nil {
		state, ticks = s.loop.State(), s.loop.Ticks()
	}
	s.mu.Unlock()

	return Status{
		State:    state.String(),
		Command:  s.state.Latest(),
		Pressed:  s.keyboard.Pressed(),
		Ticks:    ticks,
		Transmit: s.tx.Stats(),
	}
}

// CommandHandler returns the latest fused command and loop status.
func (s *TeleopService) CommandHandler(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// StartHandler arms the console.
func (s *TeleopService) StartHandler(c *fiber.Ctx) error {
	if err := s.Start(); err != nil {
		if errors.Is(err, ErrLoopRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return err
	}
	return c.JSON(fiber.Map{
		"status": "started",
	})
}

// StopHandler disarms the console.
func (s *TeleopService) StopHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), stopTimeout)
	defer cancel()

	if err := s.Stop(ctx); err != nil {
		// The loop is stopped either way; only the final send failed.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"status": "stopped",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "stopped",
	})
}

// RegisterRoutes registers the teleop endpoints under /api/v1/teleop.
func (s *TeleopService) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api/v1/teleop")
	group.Get("/command", s.CommandHandler)
	group.Post("/start", s.StartHandler)
	group.Post("/stop", s.StopHandler)
}
