// Package zeromq is the ZeroMQ vehicle link: a PUB socket carrying movement
// frames and a REP socket answering gateway requests.
package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// Common errors
var (
	ErrServiceClosed      = errors.New("zeromq service is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Message types
const (
	MsgTypeHeartbeat      = "HEARTBEAT"
	MsgTypeHeartbeatAck   = "HEARTBEAT_ACK"
	MsgTypeStatus         = "STATUS"
	MsgTypeAck            = "ACK"
	MsgTypeConfigRequest  = "CONFIG_REQUEST"
	MsgTypeConfigResponse = "CONFIG_RESPONSE"
	MsgTypeError          = "ERROR"
)

const (
	pollInterval  = 100 * time.Millisecond
	socketTimeout = time.Second
)

// ZeroMQMessage represents a generic message structure for ZeroMQ communication.
// Timestamp is in seconds since the epoch.
type ZeroMQMessage struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorResponse represents an error response message
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MessageHandler defines the interface for handlers that process specific message types
type MessageHandler interface {
	HandleMessage(msg ZeroMQMessage) ([]byte, error)
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpochSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}

// newReply builds a JSON reply of type t carrying data.
func newReply(t string, data interface{}) ([]byte, error) {
	msg := ZeroMQMessage{Type: t, Timestamp: epochSeconds(time.Now())}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s data: %w", t, err)
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// MessageReceiver answers requests on a REP socket. The socket is owned by the
// receive goroutine; zmq sockets must not be shared between threads.
type MessageReceiver struct {
	socket     *zmq4.Socket
	dispatcher *MessageDispatcher
	logger     customlog.Logger
	address    string
	running    atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once
}

func newMessageReceiver(ctx *zmq4.Context, address string, dispatcher *MessageDispatcher, logger customlog.Logger) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetRcvtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}
	if err := socket.SetSndtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("MessageReceiver initialized on %s", address)
	return &MessageReceiver{
		socket:     socket,
		dispatcher: dispatcher,
		logger:     logger,
		address:    address,
		done:       make(chan struct{}),
	}, nil
}

// Start begins the message receiving loop
func (r *MessageReceiver) Start() {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	go r.loop()
}

func (r *MessageReceiver) loop() {
	defer close(r.done)
	defer r.closeSocket()

	poller := zmq4.NewPoller()
	poller.Add(r.socket, zmq4.POLLIN)
	r.logger.Debugf("MessageReceiver started")

	for r.running.Load() {
		sockets, err := poller.Poll(pollInterval)
		if err != nil {
			if r.running.Load() {
				r.logger.Warnf("Error polling socket: %v", err)
			}
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		msg, err := r.socket.RecvBytes(0)
		if err != nil {
			r.logger.Warnf("Error receiving message: %v", err)
			continue
		}

		response, err := r.dispatcher.Dispatch(msg)
		if err != nil {
			r.logger.Warnf("Error dispatching message: %v", err)
			response, _ = newReply(MsgTypeError, ErrorResponse{Message: err.Error(), Code: 400})
		}
		// REP must answer every request before it can receive again.
		if _, err := r.socket.SendBytes(response, 0); err != nil {
			r.logger.Warnf("Error sending response: %v", err)
		}
	}
}

// Stop halts the loop and waits for the socket to close.
func (r *MessageReceiver) Stop() {
	if r.running.CompareAndSwap(true, false) {
		<-r.done
		return
	}
	r.closeSocket()
}

func (r *MessageReceiver) closeSocket() {
	r.closeOnce.Do(func() { r.socket.Close() })
}

// MessageSender publishes topic-framed messages on a PUB socket.
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetSndtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("MessageSender initialized on %s", address)
	return &MessageSender{socket: socket, logger: logger, running: true}, nil
}

// PublishMessage sends topic then payload as one two-part message.
func (s *MessageSender) PublishMessage(topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}
	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(payload, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// MessageDispatcher routes messages to the appropriate handlers
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewMessageDispatcher creates a new message dispatcher
func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a specific message type
func (d *MessageDispatcher) RegisterHandler(messageType string, handler MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[messageType] = handler
	d.logger.Debugf("Registered handler for message type: %s", messageType)
}

// Dispatch decodes a JSON request and hands it to the handler for its type.
func (d *MessageDispatcher) Dispatch(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	d.mu.RLock()
	handler, exists := d.handlers[msg.Type]
	d.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}
	return handler.HandleMessage(msg)
}

// ZeroMQService owns the zmq context and both sockets.
type ZeroMQService struct {
	ctx        *zmq4.Context
	receiver   *MessageReceiver
	sender     *MessageSender
	dispatcher *MessageDispatcher
	logger     customlog.Logger
	mu         sync.Mutex
	running    bool
}

// NewZeroMQService creates a new ZeroMQ service bound to the configured addresses.
func NewZeroMQService(cfg config.ZeroMQConfig, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	dispatcher := NewMessageDispatcher(logger)

	receiver, err := newMessageReceiver(ctx, cfg.ReplyBindAddress, dispatcher, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	sender, err := newMessageSender(ctx, cfg.PublishBindAddress, logger)
	if err != nil {
		receiver.Stop()
		ctx.Term()
		return nil, err
	}

	return &ZeroMQService{
		ctx:        ctx,
		receiver:   receiver,
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// RegisterHandler adds a handler for a specific message type
func (s *ZeroMQService) RegisterHandler(messageType string, handler MessageHandler) {
	s.dispatcher.RegisterHandler(messageType, handler)
}

// Start begins answering requests.
func (s *ZeroMQService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.logger.Infof("Starting ZeroMQ service")
	s.receiver.Start()
}

// Stop closes both sockets and terminates the context.
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}

	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false
	s.receiver.Stop()
	s.sender.Close()

	if err := s.ctx.Term(); err != nil {
		s.logger.Warnf("Terminating ZMQ context: %v", err)
	}
	s.ctx = nil
	s.logger.Infof("ZeroMQ service stopped")
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, payload []byte) error {
	return s.sender.PublishMessage(topic, payload)
}
