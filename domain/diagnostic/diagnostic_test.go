package diagnostic

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestLinkStateHeartbeatAndTimeout(t *testing.T) {
	link := NewLinkState("websocket")
	if link.Health().Connected {
		t.Fatalf("Link must start disconnected")
	}

	ch, cancel := link.SubscribeHealth()
	defer cancel()
	<-ch

	at := time.Unix(1700000000, 0)
	link.RecordHeartbeat(at, 12*time.Millisecond)
	h := <-ch
	if !h.Connected || h.RoundTripMs != 12 || !h.LastHeartbeat.Equal(at) {
		t.Errorf("Unexpected health after heartbeat: %+v", h)
	}

	link.RecordHeartbeat(at.Add(time.Second), -1)
	if got := link.Health().RoundTripDelay; got != 12*time.Millisecond {
		t.Errorf("Negative rtt should keep previous delay, got %v", got)
	}

	link.MarkDisconnected("heartbeat timeout")
	h = link.Health()
	if h.Connected || h.Reason != "heartbeat timeout" {
		t.Errorf("Unexpected health after timeout: %+v", h)
	}
}

func TestHeartbeatMonitorFiresOnce(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewHeartbeatMonitor(5*time.Second, time.Second)
	m.now = func() time.Time { return now }
	m.Beat()

	now = now.Add(5 * time.Second)
	if m.Expired() {
		t.Errorf("Exactly at the timeout should not expire")
	}
	now = now.Add(time.Second)
	if !m.Expired() {
		t.Errorf("Expected expiry after 6s")
	}
	if m.Expired() {
		t.Errorf("Expiry must fire once until the next beat")
	}

	m.Beat()
	now = now.Add(6 * time.Second)
	if !m.Expired() {
		t.Errorf("Expected expiry after re-arming")
	}
}

func TestHeartbeatMonitorRun(t *testing.T) {
	m := NewHeartbeatMonitor(5*time.Millisecond, time.Millisecond)
	var fired atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, func() { fired.Add(1) })
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if fired.Load() != 1 {
		t.Errorf("Expected one timeout, got %d", fired.Load())
	}
}

func TestGetLinkHandler(t *testing.T) {
	link := NewLinkState("zeromq")
	link.UpdateVehicle(VehicleStatus{WaterDetected: true, Pitch: 1.5})
	svc := NewDiagnosticService(link, func() interface{} { return map[string]int{"sent": 3} })

	app := fiber.New()
	svc.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/diagnostics/link", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	var got struct {
		Health   ConnectionHealth `json:"health"`
		Vehicle  VehicleStatus    `json:"vehicle"`
		Transmit map[string]int   `json:"transmit"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if got.Health.Transport != "zeromq" || got.Health.Connected {
		t.Errorf("Unexpected health %+v", got.Health)
	}
	if !got.Vehicle.WaterDetected || got.Vehicle.Pitch != 1.5 {
		t.Errorf("Unexpected vehicle status %+v", got.Vehicle)
	}
	if got.Transmit["sent"] != 3 {
		t.Errorf("Unexpected transmit stats %+v", got.Transmit)
	}
}
