package teleop

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

func newTestService(tx *fakeTransmitter) (*TeleopService, *swappableBindings) {
	bindings := newBindings(config.DefaultConfig())
	svc := NewTeleopService(bindings, NewKeyboardSampler(), NewGamepadSampler(nil), tx, 2*time.Millisecond, customlog.NewNopLogger())
	return svc, bindings
}

func TestServiceRestartOnConfigUpdate(t *testing.T) {
	tx := &fakeTransmitter{}
	svc, bindings := newTestService(tx)

	svc.Keyboard().KeyDown("KeyI")
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	updated := config.DefaultConfig()
	updated.Keyboard.MoveForward = "KeyI"
	bindings.cfg.Store(updated)
	svc.ConfigUpdated(updated)

	if _, finals := tx.counts(); finals != 1 {
		t.Errorf("Restart should send one zero command, got %d", finals)
	}
	if !svc.Running() {
		t.Fatalf("Loop should be running after restart")
	}
	waitUntil(t, "new binding", func() bool {
		return svc.CommandState().Latest() == MovementCommand{Surge: 1}
	})

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if svc.Running() {
		t.Errorf("Loop should be stopped")
	}
}

func TestServiceConfigUpdateWhileStoppedDoesNotArm(t *testing.T) {
	tx := &fakeTransmitter{}
	svc, _ := newTestService(tx)

	svc.ConfigUpdated(config.DefaultConfig())
	if svc.Running() {
		t.Errorf("Config update must not start a stopped console")
	}
}

func TestServiceHandlers(t *testing.T) {
	tx := &fakeTransmitter{}
	svc, _ := newTestService(tx)

	app := fiber.New()
	svc.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/teleop/start", nil))
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("start: status %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/api/v1/teleop/start", nil))
	if err != nil {
		t.Fatalf("second start request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("second start: status %d, want 409", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/teleop/command", nil))
	if err != nil {
		t.Fatalf("command request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v (%s)", err, body)
	}
	if status.State != "running" {
		t.Errorf("Expected running state, got %q", status.State)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/api/v1/teleop/stop", nil))
	if err != nil {
		t.Fatalf("stop request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("stop: status %d", resp.StatusCode)
	}
	if _, finals := tx.counts(); finals != 1 {
		t.Errorf("Expected one final command, got %d", finals)
	}
}

func TestServiceNotifiesTransmitFailures(t *testing.T) {
	svc, _ := newTestService(&fakeTransmitter{})
	ch, cancel := svc.Notifications()
	defer cancel()
	<-ch

	svc.ReportTransmitFailure(context.DeadlineExceeded)

	select {
	case n := <-ch:
		if n.Level != "error" || n.Message != context.DeadlineExceeded.Error() {
			t.Errorf("Unexpected notification %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("No notification received")
	}
}
