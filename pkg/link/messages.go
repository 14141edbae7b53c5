package link

import (
	"encoding/json"

	"github.com/open-teleop/console/domain/teleop"
)

// MessageType tags every message exchanged with the vehicle.
type MessageType string

const (
	MessageCommand      MessageType = "Command"
	MessageHeartbeat    MessageType = "Heartbeat"
	MessageControlInput MessageType = "ControlInput"
	MessageStatus       MessageType = "Status"
)

// handshakePayload is the Command payload that opens a session.
const handshakePayload = "connect"

// Message is the JSON envelope on the vehicle WebSocket.
type Message struct {
	Type     MessageType     `json:"message_type"`
	Payload  json.RawMessage `json:"payload"`
	Sequence uint64          `json:"sequence,omitempty"`
}

// HeartbeatPayload carries the sender's timestamp, null in console replies.
type HeartbeatPayload struct {
	Timestamp *int64 `json:"timestamp"`
}

// StatusPayload is the vehicle's periodic status report.
type StatusPayload struct {
	WaterDetected bool    `json:"water_detected"`
	Pitch         float32 `json:"pitch"`
	Roll          float32 `json:"roll"`
	DesiredPitch  float32 `json:"desired_pitch"`
	DesiredRoll   float32 `json:"desired_roll"`
}

func newMessage(t MessageType, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: raw}, nil
}

// controlInput encodes a frame as a ControlInput message. The vehicle expects
// six single-precision values in axis order.
func controlInput(frame teleop.Frame) (Message, error) {
	var values [teleop.AxisCount]float32
	for i, v := range frame.Command {
		values[i] = float32(v)
	}
	msg, err := newMessage(MessageControlInput, values)
	if err != nil {
		return Message{}, err
	}
	msg.Sequence = frame.Sequence
	return msg, nil
}
