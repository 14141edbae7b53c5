// Package link connects the console to the vehicle over WebSocket.
package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

var (
	// ErrNotConnected is returned by SendCommand while no session is up.
	ErrNotConnected = errors.New("vehicle link not connected")
	// ErrLinkClosed is returned once Close has been called.
	ErrLinkClosed = errors.New("vehicle link closed")
)

const controlWriteTimeout = 5 * time.Second

// Options configures a WebSocketLink.
type Options struct {
	URL               string
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MonitorInterval   time.Duration
}

// OptionsFromConfig builds link options from the bootstrap link section.
func OptionsFromConfig(cfg config.LinkConfig) Options {
	return Options{
		URL:               cfg.LinkURL(),
		ConnectTimeout:    config.Millis(cfg.ConnectTimeoutMs),
		ReconnectInterval: config.Millis(cfg.ReconnectIntervalMs),
		HeartbeatInterval: config.Millis(cfg.HeartbeatIntervalMs),
		HeartbeatTimeout:  config.Millis(cfg.HeartbeatTimeoutMs),
		MonitorInterval:   time.Second,
	}
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 3 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = time.Second
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 5 * time.Second
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = time.Second
	}
}

// WebSocketLink is a reconnecting client for the vehicle's WebSocket endpoint.
// It implements teleop.CommandSender and keeps a diagnostic.LinkState current.
type WebSocketLink struct {
	opts   Options
	state  *diagnostic.LinkState
	logger customlog.Logger
	now    func() time.Time

	mu      sync.Mutex
	conn    *websocket.Conn
	session string
	closed  bool

	writeMu sync.Mutex
}

// NewWebSocketLink creates a link. Call Run to start connecting.
func NewWebSocketLink(opts Options, state *diagnostic.LinkState, logger customlog.Logger) *WebSocketLink {
	opts.applyDefaults()
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &WebSocketLink{
		opts:   opts,
		state:  state,
		logger: logger.WithField("component", "ws-link"),
		now:    time.Now,
	}
}

// Run connects, serves the session and reconnects until ctx is done or the
// link is closed.
func (l *WebSocketLink) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil || l.isClosed() {
			return
		}

		l.logger.Infof("Connecting to vehicle at %s", l.opts.URL)
		conn, err := l.connectOnce(ctx)
		if err != nil {
			l.logger.Warnf("Vehicle connect failed: %v", err)
		} else {
			err = l.serve(ctx, conn)
			l.logger.Warnf("Vehicle connection lost: %v", err)
		}
		l.state.MarkDisconnected(reason(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.opts.ReconnectInterval):
		}
	}
}

func reason(err error) string {
	if err == nil {
		return "disconnected"
	}
	return err.Error()
}

func (l *WebSocketLink) connectOnce(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, l.opts.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: l.opts.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, l.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", l.opts.URL, err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return nil, ErrLinkClosed
	}
	l.conn = conn
	l.session = uuid.NewString()
	session := l.session
	l.mu.Unlock()

	if err := l.writeMessage(conn, MessageCommand, handshakePayload); err != nil {
		l.dropConn(conn)
		return nil, fmt.Errorf("handshake: %w", err)
	}

	l.state.ResetVehicle()
	l.state.MarkConnected()
	l.logger.Infof("Connected to vehicle (session %s)", session)
	return conn, nil
}

// serve runs one session: the read loop, the ping loop and the heartbeat
// monitor. It returns when any of them ends the session.
func (l *WebSocketLink) serve(ctx context.Context, conn *websocket.Conn) error {
	sessCtx, cancel := context.WithCancelCause(ctx)
	defer l.dropConn(conn)
	defer cancel(nil)

	monitor := diagnostic.NewHeartbeatMonitor(l.opts.HeartbeatTimeout, l.opts.MonitorInterval)
	monitor.Beat()

	conn.SetPongHandler(func(appData string) error {
		monitor.Beat()
		now := l.now()
		rtt := time.Duration(-1)
		if sent, err := strconv.ParseInt(appData, 10, 64); err == nil {
			rtt = now.Sub(time.UnixMilli(sent))
		}
		l.state.RecordHeartbeat(now, rtt)
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		monitor.Run(sessCtx, func() {
			cancel(errors.New("heartbeat timeout"))
		})
	}()
	go func() {
		defer wg.Done()
		l.pingLoop(sessCtx, conn)
	}()
	go func() {
		defer wg.Done()
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	err := l.readLoop(conn, monitor)
	cancel(err)
	wg.Wait()

	if cause := context.Cause(sessCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

func (l *WebSocketLink) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(l.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stamp := strconv.FormatInt(l.now().UnixMilli(), 10)
			l.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte(stamp), time.Now().Add(controlWriteTimeout))
			l.writeMu.Unlock()
			if err != nil {
				l.logger.Debugf("Ping failed: %v", err)
			}
		}
	}
}

func (l *WebSocketLink) readLoop(conn *websocket.Conn, monitor *diagnostic.HeartbeatMonitor) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Warnf("Ignoring malformed vehicle message: %v", err)
			continue
		}

		switch msg.Type {
		case MessageHeartbeat:
			monitor.Beat()
			l.state.RecordHeartbeat(l.now(), -1)
			if err := l.writeMessage(conn, MessageHeartbeat, HeartbeatPayload{}); err != nil {
				return fmt.Errorf("heartbeat reply: %w", err)
			}
		case MessageStatus:
			var st StatusPayload
			if err := json.Unmarshal(msg.Payload, &st); err != nil {
				l.logger.Warnf("Ignoring malformed status: %v", err)
				continue
			}
			l.state.UpdateVehicle(diagnostic.VehicleStatus{
				WaterDetected: st.WaterDetected,
				Pitch:         float64(st.Pitch),
				Roll:          float64(st.Roll),
				DesiredPitch:  float64(st.DesiredPitch),
				DesiredRoll:   float64(st.DesiredRoll),
				UpdatedAt:     l.now(),
			})
		default:
			l.logger.Debugf("Unhandled vehicle message %q", msg.Type)
		}
	}
}

// SendCommand writes one ControlInput message. It fails fast when no session
// is up.
func (l *WebSocketLink) SendCommand(ctx context.Context, frame teleop.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	conn, closed := l.conn, l.closed
	l.mu.Unlock()
	if closed {
		return ErrLinkClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	msg, err := controlInput(frame)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (l *WebSocketLink) writeMessage(conn *websocket.Conn, t MessageType, payload interface{}) error {
	msg, err := newMessage(t, payload)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(controlWriteTimeout))
	return conn.WriteJSON(msg)
}

func (l *WebSocketLink) dropConn(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
		l.session = ""
	}
	l.mu.Unlock()
	_ = conn.Close()
}

func (l *WebSocketLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Connected reports whether a session is currently up.
func (l *WebSocketLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Close ends the current session and stops Run from reconnecting.
func (l *WebSocketLink) Close() {
	l.mu.Lock()
	l.closed = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
