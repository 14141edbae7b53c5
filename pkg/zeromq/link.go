package zeromq

import (
	"context"
	"time"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// LinkOptions configures a ZeroMQ vehicle link.
type LinkOptions struct {
	ZeroMQ           config.ZeroMQConfig
	ConsoleID        string
	HeartbeatTimeout time.Duration
	MonitorInterval  time.Duration
}

// Link is the ZeroMQ vehicle link. Commands go out on PUB; the gateway's
// heartbeats and status reports arrive on REP.
type Link struct {
	service   *ZeroMQService
	publisher *CommandPublisher
	monitor   *diagnostic.HeartbeatMonitor
	state     *diagnostic.LinkState
	logger    customlog.Logger
}

// NewLink binds both sockets and registers the request handlers.
func NewLink(opts LinkOptions, state *diagnostic.LinkState, bindings BindingsProvider, logger customlog.Logger) (*Link, error) {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	logger = logger.WithField("component", "zmq-link")

	service, err := NewZeroMQService(opts.ZeroMQ, logger)
	if err != nil {
		return nil, err
	}

	timeout := opts.HeartbeatTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	monitor := diagnostic.NewHeartbeatMonitor(timeout, opts.MonitorInterval)

	service.RegisterHandler(MsgTypeHeartbeat, NewHeartbeatHandler(state, monitor, opts.ConsoleID))
	service.RegisterHandler(MsgTypeStatus, NewStatusHandler(state, logger))
	if bindings != nil {
		service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(bindings, logger))
	}

	return &Link{
		service:   service,
		publisher: NewCommandPublisher(service, opts.ZeroMQ.CommandTopic),
		monitor:   monitor,
		state:     state,
		logger:    logger,
	}, nil
}

// Run answers gateway requests and watches for heartbeat loss until ctx is done.
func (l *Link) Run(ctx context.Context) {
	l.service.Start()
	l.monitor.Run(ctx, func() {
		if l.state.Health().Connected {
			l.logger.Warnf("No heartbeat from gateway, marking link down")
		}
		l.state.MarkDisconnected("heartbeat timeout")
	})
}

// SendCommand implements teleop.CommandSender.
func (l *Link) SendCommand(ctx context.Context, frame teleop.Frame) error {
	return l.publisher.SendCommand(ctx, frame)
}

// Close releases the sockets.
func (l *Link) Close() {
	l.service.Stop()
}
