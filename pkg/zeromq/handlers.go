package zeromq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// HeartbeatHandler handles HEARTBEAT requests from the vehicle gateway.
type HeartbeatHandler struct {
	state     *diagnostic.LinkState
	monitor   *diagnostic.HeartbeatMonitor
	consoleID string
	now       func() time.Time
}

// NewHeartbeatHandler creates a handler that keeps state and monitor current.
func NewHeartbeatHandler(state *diagnostic.LinkState, monitor *diagnostic.HeartbeatMonitor, consoleID string) *HeartbeatHandler {
	return &HeartbeatHandler{state: state, monitor: monitor, consoleID: consoleID, now: time.Now}
}

// HandleMessage records the heartbeat and answers HEARTBEAT_ACK. The delay is
// measured from the sender's timestamp; without one the previous delay stays.
func (h *HeartbeatHandler) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	now := h.now()
	delay := time.Duration(-1)
	if msg.Timestamp > 0 {
		if d := now.Sub(fromEpochSeconds(msg.Timestamp)); d >= 0 {
			delay = d
		}
	}

	h.monitor.Beat()
	h.state.RecordHeartbeat(now, delay)

	return newReply(MsgTypeHeartbeatAck, map[string]string{"console_id": h.consoleID})
}

// StatusData is the Data of a STATUS request.
type StatusData struct {
	WaterDetected bool    `json:"water_detected"`
	Pitch         float64 `json:"pitch"`
	Roll          float64 `json:"roll"`
	DesiredPitch  float64 `json:"desired_pitch"`
	DesiredRoll   float64 `json:"desired_roll"`
}

// StatusHandler handles STATUS reports from the vehicle gateway.
type StatusHandler struct {
	state  *diagnostic.LinkState
	logger customlog.Logger
}

// NewStatusHandler creates a status handler
func NewStatusHandler(state *diagnostic.LinkState, logger customlog.Logger) *StatusHandler {
	return &StatusHandler{state: state, logger: logger}
}

// HandleMessage stores the reported vehicle status.
func (h *StatusHandler) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	if len(msg.Data) == 0 {
		return nil, fmt.Errorf("%w: STATUS without data", ErrInvalidMessage)
	}
	var data StatusData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	h.state.UpdateVehicle(diagnostic.VehicleStatus{
		WaterDetected: data.WaterDetected,
		Pitch:         data.Pitch,
		Roll:          data.Roll,
		DesiredPitch:  data.DesiredPitch,
		DesiredRoll:   data.DesiredRoll,
		UpdatedAt:     time.Now(),
	})
	if data.WaterDetected {
		h.logger.Warnf("Vehicle reports water detected")
	}
	return newReply(MsgTypeAck, nil)
}

// BindingsProvider supplies the current bindings configuration.
type BindingsProvider interface {
	GetCurrentConfig() *config.Config
}

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	bindings BindingsProvider
	logger   customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(bindings BindingsProvider, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{bindings: bindings, logger: logger}
}

// HandleMessage answers with the bindings the console is currently using.
func (h *ConfigHandler) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	cfg := h.bindings.GetCurrentConfig()
	h.logger.Debugf("Sending configuration %s to gateway", cfg.ConfigID)
	return newReply(MsgTypeConfigResponse, cfg)
}
