package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	customlog "github.com/open-teleop/console/pkg/log"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []Frame
	err    error
	block  chan struct{}
}

func (s *recordingSender) SendCommand(ctx context.Context, frame Frame) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSender) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func (s *recordingSender) SetErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func TestTransmitterSendsInSequence(t *testing.T) {
	sender := &recordingSender{}
	tx := NewTransmitter(sender, TransmitterOptions{Workers: 1, QueueSize: 16}, customlog.NewNopLogger())
	defer tx.Close()

	tx.Send(MovementCommand{Surge: 0.5})
	tx.Send(MovementCommand{Yaw: -0.5})
	if err := tx.SendFinal(context.Background(), ZeroCommand); err != nil {
		t.Fatalf("SendFinal failed: %v", err)
	}

	frames := sender.Frames()
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Sequence != uint64(i+1) {
			t.Errorf("Frame %d has sequence %d", i, f.Sequence)
		}
	}
	if !frames[2].Command.IsZero() {
		t.Errorf("Final frame should be zero, got %v", frames[2].Command)
	}
	if stats := tx.Stats(); stats.Sent != 3 || stats.Failed != 0 || stats.LastSequence != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestTransmitterThrottlesSurfacedFailures(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	sender := &recordingSender{err: errors.New("link down")}
	tx := NewTransmitter(sender, TransmitterOptions{ReportInterval: 10 * time.Second, Clock: clock.Now}, customlog.NewNopLogger())
	defer tx.Close()

	var mu sync.Mutex
	var reports []error
	tx.OnFailure(func(err error) {
		mu.Lock()
		reports = append(reports, err)
		mu.Unlock()
	})

	for _, at := range []time.Duration{0, 50 * time.Millisecond, 9 * time.Second, 11 * time.Second} {
		clock.Set(at)
		if err := tx.SendFinal(context.Background(), ZeroCommand); err == nil {
			t.Fatalf("Expected send failure at %v", at)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 2 {
		t.Fatalf("Expected 2 surfaced failures, got %d: %v", len(reports), reports)
	}
	stats := tx.Stats()
	if stats.Failed != 4 || stats.Surfaced != 2 || stats.LastError != "link down" {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestTransmitterQueueFullIsAFailure(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	tx := NewTransmitter(sender, TransmitterOptions{Workers: 1, QueueSize: 1, SendTimeout: time.Second}, customlog.NewNopLogger())
	defer tx.Close()

	failures := make(chan error, 8)
	tx.OnFailure(func(err error) { failures <- err })

	// One in flight, one queued, the rest rejected.
	for i := 0; i < 4; i++ {
		tx.Send(MovementCommand{Surge: 1})
	}

	select {
	case err := <-failures:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("Expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Queue overflow was not surfaced")
	}
	close(sender.block)
}

func TestSendFinalIsLastFrame(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	tx := NewTransmitter(sender, TransmitterOptions{Workers: 2, QueueSize: 8, SendTimeout: time.Second}, customlog.NewNopLogger())
	defer tx.Close()

	for i := 0; i < 6; i++ {
		tx.Send(MovementCommand{Surge: 1})
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(sender.block)
	}()
	if err := tx.SendFinal(context.Background(), ZeroCommand); err != nil {
		t.Fatalf("SendFinal failed: %v", err)
	}

	frames := sender.Frames()
	if len(frames) == 0 {
		t.Fatalf("No frames sent")
	}
	last := frames[len(frames)-1]
	if !last.Command.IsZero() {
		t.Errorf("Last frame should be the zero command, got %v", last.Command)
	}
	for _, f := range frames[:len(frames)-1] {
		if f.Sequence > last.Sequence {
			t.Errorf("Frame %d emitted after final frame %d", f.Sequence, last.Sequence)
		}
	}
}

func TestSendAfterCloseReportsClosed(t *testing.T) {
	sender := &recordingSender{}
	tx := NewTransmitter(sender, TransmitterOptions{}, customlog.NewNopLogger())

	failures := make(chan error, 1)
	tx.OnFailure(func(err error) { failures <- err })
	tx.Close()

	tx.Send(MovementCommand{Surge: 1})
	select {
	case err := <-failures:
		if !errors.Is(err, ErrTxClosed) {
			t.Errorf("Expected ErrTxClosed, got %v", err)
		}
		if errors.Is(err, ErrQueueFull) {
			t.Errorf("Closed transmitter must not report a full queue: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Send after Close was not surfaced")
	}
	if got := len(sender.Frames()); got != 0 {
		t.Errorf("Expected no frames after Close, got %d", got)
	}
}

type slowSender struct{ delay time.Duration }

func (s slowSender) SendCommand(ctx context.Context, frame Frame) error {
	time.Sleep(s.delay)
	return nil
}

func TestStatsReportQueueAndSendTime(t *testing.T) {
	tx := NewTransmitter(slowSender{delay: 5 * time.Millisecond}, TransmitterOptions{Workers: 1, QueueSize: 4}, customlog.NewNopLogger())
	defer tx.Close()

	tx.Send(MovementCommand{Heave: 1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tx.pool.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	stats := tx.Stats()
	if stats.QueueName != "transmit" || stats.QueueCap != 4 || stats.QueueLength != 0 {
		t.Errorf("Unexpected queue stats %+v", stats)
	}
	if stats.LastSendTime < 5*time.Millisecond {
		t.Errorf("Expected last send time of at least 5ms, got %v", stats.LastSendTime)
	}
}
