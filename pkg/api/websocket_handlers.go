package api

import (
	"encoding/json"
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/gamepad"
	customlog "github.com/open-teleop/console/pkg/log"
)

// RemoteGamepad receives controller snapshots pushed by the host environment.
type RemoteGamepad interface {
	Update(snap gamepad.Snapshot)
	Clear()
}

// InputHandler applies host input events to the samplers.
type InputHandler struct {
	keyboard *teleop.KeyboardSampler
	gamepad  RemoteGamepad
	logger   customlog.Logger
}

// NewInputHandler creates an input handler. pad may be nil when the gamepad
// is read from a local device instead.
func NewInputHandler(keyboard *teleop.KeyboardSampler, pad RemoteGamepad, logger customlog.Logger) *InputHandler {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &InputHandler{keyboard: keyboard, gamepad: pad, logger: logger}
}

// Apply handles one input message.
func (h *InputHandler) Apply(msg InputMessage) error {
	switch msg.Type {
	case InputKeyDown:
		h.keyboard.KeyDown(msg.Code)
	case InputKeyUp:
		h.keyboard.KeyUp(msg.Code)
	case InputFocusLost:
		h.keyboard.FocusLost()
	case InputGamepad:
		if h.gamepad == nil {
			return nil
		}
		h.gamepad.Update(msg.Snapshot())
	default:
		return errors.New("unknown input type " + msg.Type)
	}
	return nil
}

// Disconnected treats a closed input socket as focus loss.
func (h *InputHandler) Disconnected() {
	h.keyboard.FocusLost()
	if h.gamepad != nil {
		h.gamepad.Clear()
	}
}

// Serve reads input events from conn until it closes.
func (h *InputHandler) Serve(conn *websocket.Conn) {
	h.logger.Infof("Input WebSocket connected: %s", conn.RemoteAddr())
	defer func() {
		h.Disconnected()
		h.logger.Infof("Input WebSocket disconnected: %s", conn.RemoteAddr())
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			logClose(h.logger, "Input", err)
			return
		}
		if mt != websocket.TextMessage {
			h.logger.Debugf("Ignoring non-text input message type: %d", mt)
			continue
		}

		var msg InputMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warnf("Failed to unmarshal input message: %v. Message: %s", err, string(data))
			continue
		}
		if err := h.Apply(msg); err != nil {
			h.logger.Warnf("Ignoring input message: %v", err)
		}
	}
}

func logClose(logger customlog.Logger, name string, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
		!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
		logger.Warnf("%s WS read error: %v", name, err)
		return
	}
	logger.Debugf("%s WS connection closed: %v", name, err)
}

// StateStreamer pushes command, health and notification changes to display
// consumers.
type StateStreamer struct {
	teleop *teleop.TeleopService
	link   *diagnostic.LinkState
	logger customlog.Logger
}

// NewStateStreamer creates a streamer over the given state owners.
func NewStateStreamer(svc *teleop.TeleopService, link *diagnostic.LinkState, logger customlog.Logger) *StateStreamer {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &StateStreamer{teleop: svc, link: link, logger: logger}
}

// Serve writes state events to conn until it closes.
func (s *StateStreamer) Serve(conn *websocket.Conn) {
	commands, cancelCommands := s.teleop.CommandState().Subscribe()
	defer cancelCommands()
	health, cancelHealth := s.link.SubscribeHealth()
	defer cancelHealth()
	vehicle, cancelVehicle := s.link.SubscribeVehicle()
	defer cancelVehicle()
	notices, cancelNotices := s.teleop.Notifications()
	defer cancelNotices()

	// The stream is write-only; the reader only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logClose(s.logger, "State", err)
				return
			}
		}
	}()

	for {
		var ev StateEvent
		select {
		case <-closed:
			return
		case cmd := <-commands:
			ev = StateEvent{Type: EventCommand, Data: cmd}
		case h := <-health:
			ev = StateEvent{Type: EventHealth, Data: h}
		case v := <-vehicle:
			ev = StateEvent{Type: EventVehicle, Data: v}
		case n := <-notices:
			if n.Message == "" {
				continue
			}
			ev = StateEvent{Type: EventNotification, Data: n}
		}
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debugf("State WS write failed: %v", err)
			return
		}
	}
}

// RegisterWebSocketRoutes mounts /ws/input and /ws/state.
func RegisterWebSocketRoutes(app fiber.Router, input *InputHandler, state *StateStreamer) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/input", websocket.New(input.Serve))
	app.Get("/ws/state", websocket.New(state.Serve))
}
