package wire

import (
	"errors"
	"testing"
	"time"

	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/flatbuffers/open_teleop/message"
)

func TestEncodeMovementEnvelope(t *testing.T) {
	issued := time.Unix(1700000000, 500)
	cmd := teleop.MovementCommand{1, -1, 0.5, 0, -0.25, 0}
	data := EncodeMovement("teleop.control.movement", teleop.Frame{Sequence: 7, Command: cmd, IssuedAt: issued})

	env := message.GetRootAsOttMessage(data, 0)
	if env.Version() != EnvelopeVersion {
		t.Errorf("Expected version %d, got %d", EnvelopeVersion, env.Version())
	}
	if env.ContentType() != message.ContentTypeMOVEMENT_COMMAND {
		t.Errorf("Unexpected content type %s", env.ContentType())
	}

	topic, frame, err := DecodeMovement(data)
	if err != nil {
		t.Fatalf("DecodeMovement failed: %v", err)
	}
	if topic != "teleop.control.movement" {
		t.Errorf("Unexpected topic %q", topic)
	}
	if frame.Sequence != 7 || frame.Command != cmd {
		t.Errorf("Unexpected frame %+v", frame)
	}
	if !frame.IssuedAt.Equal(issued) {
		t.Errorf("Expected timestamp %v, got %v", issued, frame.IssuedAt)
	}
}

func TestDecodeMovementRejectsBadInput(t *testing.T) {
	if _, _, err := DecodeMovement([]byte{1, 2}); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer, got %v", err)
	}

	data := EncodeMovement("t", teleop.Frame{Sequence: 1})
	env := message.GetRootAsOttMessage(data, 0)
	env.MutateContentType(message.ContentTypeJSON_COMMAND)
	if _, _, err := DecodeMovement(data); !errors.Is(err, ErrWrongContentType) {
		t.Errorf("Expected ErrWrongContentType, got %v", err)
	}

	garbage := []byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0, 1, 2, 3, 4}
	if _, _, err := DecodeMovement(garbage); err == nil {
		t.Errorf("Expected an error for garbage input")
	}
}
