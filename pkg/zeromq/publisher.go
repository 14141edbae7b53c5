package zeromq

import (
	"context"

	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/wire"
)

// messagePublisher is the part of ZeroMQService the command publisher needs.
type messagePublisher interface {
	PublishMessage(topic string, payload []byte) error
}

// CommandPublisher publishes movement frames as flatbuffer OttMessages.
type CommandPublisher struct {
	publisher messagePublisher
	topic     string
}

// NewCommandPublisher creates a publisher for topic.
func NewCommandPublisher(publisher messagePublisher, topic string) *CommandPublisher {
	return &CommandPublisher{publisher: publisher, topic: topic}
}

// SendCommand implements teleop.CommandSender. PUB sockets never block on
// absent subscribers, so success only means the frame left the console.
func (p *CommandPublisher) SendCommand(ctx context.Context, frame teleop.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.publisher.PublishMessage(p.topic, wire.EncodeMovement(p.topic, frame))
}
