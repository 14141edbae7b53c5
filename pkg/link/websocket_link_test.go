package link

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	customlog "github.com/open-teleop/console/pkg/log"
)

// fakeVehicle accepts one connection at a time and forwards every message it
// reads to received.
type fakeVehicle struct {
	server   *httptest.Server
	received chan Message
	conns    chan *websocket.Conn
	silent   bool
}

func newFakeVehicle(t *testing.T, silent bool) *fakeVehicle {
	t.Helper()
	v := &fakeVehicle{
		received: make(chan Message, 32),
		conns:    make(chan *websocket.Conn, 4),
		silent:   silent,
	}
	upgrader := websocket.Upgrader{}
	v.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		v.conns <- conn
		if v.silent {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if json.Unmarshal(data, &msg) == nil {
				v.received <- msg
			}
		}
	}))
	t.Cleanup(v.server.Close)
	return v
}

func (v *fakeVehicle) url() string {
	return "ws" + strings.TrimPrefix(v.server.URL, "http")
}

func (v *fakeVehicle) next(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-v.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("vehicle received nothing")
		return Message{}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startLink(t *testing.T, opts Options, state *diagnostic.LinkState) *WebSocketLink {
	t.Helper()
	l := NewWebSocketLink(opts, state, customlog.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		l.Close()
		<-done
	})
	return l
}

func TestSendWithoutConnection(t *testing.T) {
	l := NewWebSocketLink(Options{URL: "ws://127.0.0.1:1"}, diagnostic.NewLinkState("websocket"), nil)
	err := l.SendCommand(context.Background(), teleop.Frame{Sequence: 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}

	l.Close()
	if err := l.SendCommand(context.Background(), teleop.Frame{}); !errors.Is(err, ErrLinkClosed) {
		t.Errorf("Expected ErrLinkClosed after Close, got %v", err)
	}
}

func TestHandshakeAndControlInput(t *testing.T) {
	vehicle := newFakeVehicle(t, false)
	state := diagnostic.NewLinkState("websocket")
	l := startLink(t, Options{URL: vehicle.url(), HeartbeatInterval: time.Hour}, state)

	hello := vehicle.next(t)
	if hello.Type != MessageCommand || string(hello.Payload) != `"connect"` {
		t.Fatalf("Expected connect handshake, got %+v", hello)
	}
	waitFor(t, "connected health", func() bool { return state.Health().Connected })

	cmd := teleop.MovementCommand{}
	cmd[teleop.Surge] = 1
	cmd[teleop.Yaw] = -0.5
	if err := l.SendCommand(context.Background(), teleop.Frame{Sequence: 42, Command: cmd}); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	msg := vehicle.next(t)
	if msg.Type != MessageControlInput || msg.Sequence != 42 {
		t.Fatalf("Unexpected message %+v", msg)
	}
	var values []float32
	if err := json.Unmarshal(msg.Payload, &values); err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := []float32{1, 0, 0, 0, -0.5, 0}
	if len(values) != len(want) {
		t.Fatalf("Expected %d values, got %v", len(want), values)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("value %d: got %v want %v", i, values[i], want[i])
		}
	}
}

func TestHeartbeatReplyAndStatus(t *testing.T) {
	vehicle := newFakeVehicle(t, false)
	state := diagnostic.NewLinkState("websocket")
	startLink(t, Options{URL: vehicle.url(), HeartbeatInterval: time.Hour}, state)

	vehicle.next(t)
	var conn *websocket.Conn
	select {
	case conn = <-vehicle.conns:
	case <-time.After(2 * time.Second):
		t.Fatalf("no connection")
	}

	ts := int64(1700000000)
	hb, _ := newMessage(MessageHeartbeat, HeartbeatPayload{Timestamp: &ts})
	if err := conn.WriteJSON(hb); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}
	reply := vehicle.next(t)
	if reply.Type != MessageHeartbeat || string(reply.Payload) != `{"timestamp":null}` {
		t.Errorf("Unexpected heartbeat reply %+v", reply)
	}

	status, _ := newMessage(MessageStatus, StatusPayload{WaterDetected: true, Pitch: 2.5, DesiredRoll: -1})
	if err := conn.WriteJSON(status); err != nil {
		t.Fatalf("write status: %v", err)
	}
	waitFor(t, "vehicle status", func() bool { return state.Vehicle().WaterDetected })
	v := state.Vehicle()
	if v.Pitch != 2.5 || v.DesiredRoll != -1 {
		t.Errorf("Unexpected vehicle status %+v", v)
	}
}

func TestPingMeasuresRoundTrip(t *testing.T) {
	vehicle := newFakeVehicle(t, false)
	state := diagnostic.NewLinkState("websocket")
	startLink(t, Options{URL: vehicle.url(), HeartbeatInterval: 10 * time.Millisecond}, state)

	waitFor(t, "heartbeat", func() bool { return !state.Health().LastHeartbeat.IsZero() })
	if h := state.Health(); !h.Connected || h.RoundTripDelay < 0 {
		t.Errorf("Unexpected health after pong: %+v", h)
	}
}

func TestHeartbeatTimeoutDisconnectsAndReconnects(t *testing.T) {
	vehicle := newFakeVehicle(t, true)
	state := diagnostic.NewLinkState("websocket")
	l := startLink(t, Options{
		URL:               vehicle.url(),
		HeartbeatInterval: time.Hour,
		HeartbeatTimeout:  30 * time.Millisecond,
		MonitorInterval:   5 * time.Millisecond,
		ReconnectInterval: 100 * time.Millisecond,
	}, state)

	<-vehicle.conns
	waitFor(t, "heartbeat timeout", func() bool {
		h := state.Health()
		return !h.Connected && h.Reason == "heartbeat timeout"
	})

	select {
	case <-vehicle.conns:
	case <-time.After(2 * time.Second):
		t.Fatalf("link did not reconnect")
	}
	waitFor(t, "reconnected", l.Connected)
}
