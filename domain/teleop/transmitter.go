package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

// Frame is one transmitted command. Sequence increases by one per frame so a
// receiver can discard frames that arrive out of order.
type Frame struct {
	Sequence uint64          `json:"sequence"`
	Command  MovementCommand `json:"command"`
	IssuedAt time.Time       `json:"issued_at"`
}

// CommandSender carries frames to the vehicle. Only success or failure matters.
type CommandSender interface {
	SendCommand(ctx context.Context, frame Frame) error
}

// FailureReporter is told about transmit failures that pass the throttle.
type FailureReporter func(err error)

// TransmitterOptions configures a Transmitter.
type TransmitterOptions struct {
	Workers        int
	QueueSize      int
	SendTimeout    time.Duration
	ReportInterval time.Duration
	Clock          func() time.Time
}

// TransmitStats summarizes transmitter activity.
type TransmitStats struct {
	Sent         uint64                 `json:"sent"`
	Failed       uint64                 `json:"failed"`
	Surfaced     uint64                 `json:"surfaced"`
	LastSequence uint64                 `json:"last_sequence"`
	LastError    string                 `json:"last_error,omitempty"`
	LastSendTime time.Duration          `json:"last_send_ns"`
	QueueName    string                 `json:"queue_name"`
	QueueLength  int                    `json:"queue_length"`
	QueueCap     int                    `json:"queue_capacity"`
	Pool         processing.PoolMetrics `json:"pool"`
}

// Transmitter sends commands without blocking the caller. Failures never
// propagate; they are counted and surfaced through the ReportThrottle.
type Transmitter struct {
	sender   CommandSender
	pool     *processing.ProcessingPool
	throttle *ReportThrottle
	logger   customlog.Logger
	clock    func() time.Time
	timeout  time.Duration

	seq      atomic.Uint64
	sent     atomic.Uint64
	failed   atomic.Uint64
	surfaced atomic.Uint64
	lastSend atomic.Int64

	mu        sync.Mutex
	lastError string
	reporters []FailureReporter
}

// NewTransmitter creates a Transmitter and starts its worker pool.
func NewTransmitter(sender CommandSender, opts TransmitterOptions, logger customlog.Logger) *Transmitter {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 8
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 250 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger = logger.WithField("component", "transmitter")

	t := &Transmitter{
		sender:   sender,
		pool:     processing.NewProcessingPool("transmit", opts.Workers, opts.QueueSize, opts.SendTimeout, logger),
		throttle: NewReportThrottle(opts.ReportInterval, opts.Clock),
		logger:   logger,
		clock:    opts.Clock,
		timeout:  opts.SendTimeout,
	}
	t.pool.SetResultHandler(func(r *processing.TaskResult) {
		t.lastSend.Store(int64(r.Duration))
	})
	t.pool.Start()
	return t
}

// OnFailure registers a reporter for surfaced failures.
func (t *Transmitter) OnFailure(r FailureReporter) {
	t.mu.Lock()
	t.reporters = append(t.reporters, r)
	t.mu.Unlock()
}

func (t *Transmitter) nextFrame(cmd MovementCommand) Frame {
	return Frame{Sequence: t.seq.Add(1), Command: cmd, IssuedAt: t.clock()}
}

// Send queues cmd for transmission and returns immediately.
func (t *Transmitter) Send(cmd MovementCommand) {
	frame := t.nextFrame(cmd)
	err := t.pool.Submit(processing.Task{
		Name: "send",
		Run: func(ctx context.Context) error {
			return t.deliver(ctx, frame)
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, processing.ErrPoolStopped):
		t.fail(frame, ErrTxClosed)
	default:
		t.fail(frame, ErrQueueFull)
	}
}

// SendFinal drops queued sends, waits for in-flight ones, then sends cmd
// synchronously so it is the last frame emitted.
func (t *Transmitter) SendFinal(ctx context.Context, cmd MovementCommand) error {
	if dropped := t.pool.Discard(); dropped > 0 {
		t.logger.Debugf("Dropped %d queued commands before final send", dropped)
	}
	if err := t.pool.Wait(ctx); err != nil {
		t.logger.Warnf("In-flight sends did not finish before final send: %v", err)
	}

	frame := t.nextFrame(cmd)
	sendCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	start := time.Now()
	err := t.deliver(sendCtx, frame)
	t.lastSend.Store(int64(time.Since(start)))
	return err
}

func (t *Transmitter) deliver(ctx context.Context, frame Frame) error {
	if err := t.sender.SendCommand(ctx, frame); err != nil {
		t.fail(frame, err)
		return err
	}
	t.sent.Add(1)
	return nil
}

func (t *Transmitter) fail(frame Frame, err error) {
	t.failed.Add(1)

	t.mu.Lock()
	t.lastError = err.Error()
	reporters := append([]FailureReporter(nil), t.reporters...)
	t.mu.Unlock()

	if !t.throttle.Allow() {
		return
	}
	t.surfaced.Add(1)
	wrapped := fmt.Errorf("failed to send movement command #%d: %w", frame.Sequence, err)
	t.logger.Errorf("%v", wrapped)
	for _, r := range reporters {
		r(wrapped)
	}
}

// Stats returns a snapshot of transmitter counters.
func (t *Transmitter) Stats() TransmitStats {
	t.mu.Lock()
	lastError := t.lastError
	t.mu.Unlock()
	return TransmitStats{
		Sent:         t.sent.Load(),
		Failed:       t.failed.Load(),
		Surfaced:     t.surfaced.Load(),
		LastSequence: t.seq.Load(),
		LastError:    lastError,
		LastSendTime: time.Duration(t.lastSend.Load()),
		QueueName:    t.pool.GetName(),
		QueueLength:  t.pool.GetQueueLength(),
		QueueCap:     t.pool.GetQueueCapacity(),
		Pool:         t.pool.GetMetrics(),
	}
}

// Close stops the worker pool.
func (t *Transmitter) Close() {
	t.pool.Stop()
}
