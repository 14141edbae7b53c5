// Package wire encodes movement frames as OttMessage flatbuffers.
package wire

import (
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/flatbuffers/open_teleop/control"
	"github.com/open-teleop/console/pkg/flatbuffers/open_teleop/message"
)

// EnvelopeVersion is written into every OttMessage.
const EnvelopeVersion byte = 1

var (
	ErrShortBuffer      = errors.New("buffer too short for flatbuffer")
	ErrWrongContentType = errors.New("unexpected content type")
)

// EncodeMovement serialises frame as a MovementCommand table wrapped in an
// OttMessage envelope for topic.
func EncodeMovement(topic string, frame teleop.Frame) []byte {
	inner := flatbuffers.NewBuilder(64)
	control.MovementCommandStart(inner)
	control.MovementCommandAddSequence(inner, frame.Sequence)
	control.MovementCommandAddSurge(inner, float32(frame.Command[teleop.Surge]))
	control.MovementCommandAddSway(inner, float32(frame.Command[teleop.Sway]))
	control.MovementCommandAddHeave(inner, float32(frame.Command[teleop.Heave]))
	control.MovementCommandAddPitch(inner, float32(frame.Command[teleop.Pitch]))
	control.MovementCommandAddYaw(inner, float32(frame.Command[teleop.Yaw]))
	control.MovementCommandAddRoll(inner, float32(frame.Command[teleop.Roll]))
	control.FinishMovementCommandBuffer(inner, control.MovementCommandEnd(inner))
	payload := inner.FinishedBytes()

	issued := frame.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	b := flatbuffers.NewBuilder(len(payload) + len(topic) + 64)
	payloadOff := b.CreateByteVector(payload)
	topicOff := b.CreateByteString([]byte(topic))
	message.OttMessageStart(b)
	message.OttMessageAddVersion(b, EnvelopeVersion)
	message.OttMessageAddPayload(b, payloadOff)
	message.OttMessageAddContentType(b, message.ContentTypeMOVEMENT_COMMAND)
	message.OttMessageAddOtt(b, topicOff)
	message.OttMessageAddTimestampNs(b, issued.UnixNano())
	message.FinishOttMessageBuffer(b, message.OttMessageEnd(b))
	return b.FinishedBytes()
}

// DecodeMovement reverses EncodeMovement. It returns the envelope topic.
func DecodeMovement(data []byte) (topic string, frame teleop.Frame, err error) {
	defer func() {
		// Generated accessors index the buffer without bounds checks.
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed OttMessage: %v", r)
		}
	}()

	if len(data) < flatbuffers.SizeUOffsetT*2 {
		return "", teleop.Frame{}, ErrShortBuffer
	}
	env := message.GetRootAsOttMessage(data, 0)
	if ct := env.ContentType(); ct != message.ContentTypeMOVEMENT_COMMAND {
		return "", teleop.Frame{}, fmt.Errorf("%w: %s", ErrWrongContentType, ct)
	}
	payload := env.PayloadBytes()
	if len(payload) < flatbuffers.SizeUOffsetT*2 {
		return "", teleop.Frame{}, ErrShortBuffer
	}

	mc := control.GetRootAsMovementCommand(payload, 0)
	frame.Sequence = mc.Sequence()
	frame.Command[teleop.Surge] = float64(mc.Surge())
	frame.Command[teleop.Sway] = float64(mc.Sway())
	frame.Command[teleop.Heave] = float64(mc.Heave())
	frame.Command[teleop.Pitch] = float64(mc.Pitch())
	frame.Command[teleop.Yaw] = float64(mc.Yaw())
	frame.Command[teleop.Roll] = float64(mc.Roll())
	frame.IssuedAt = time.Unix(0, env.TimestampNs())
	return string(env.Ott()), frame, nil
}
