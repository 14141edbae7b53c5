package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	customlog "github.com/open-teleop/console/pkg/log"
)

var (
	ErrPoolStopped = errors.New("pool not running")
	ErrQueueFull   = errors.New("pool queue full")
)

// Task is a unit of work run by a pool worker.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskResult is the outcome of a task
type TaskResult struct {
	Name     string
	Duration time.Duration
	Error    error
}

// ResultHandler is a function that handles task results
type ResultHandler func(result *TaskResult)

// ProcessingPool is a bounded worker pool. Submit never blocks: when the queue is
// full the task is rejected and the caller decides what that means.
type ProcessingPool struct {
	name          string
	workerCount   int
	logger        customlog.Logger
	taskQueue     chan Task
	running       bool
	wg            sync.WaitGroup
	mu            sync.Mutex
	idle          *sync.Cond
	pending       int // queued + in flight
	resultHandler ResultHandler
	queueSize     int
	taskTimeout   time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	metricsMu     sync.Mutex
	metrics       PoolMetrics
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64 `json:"processed"`
	ErrorCount        int64 `json:"errors"`
	QueuedCount       int64 `json:"queued"`
	RejectedCount     int64 `json:"rejected"`
	DiscardedCount    int64 `json:"discarded"`
	LastProcessedTime int64 `json:"last_processed_ns"`
	ProcessingTimeAvg int64 `json:"avg_time_us"` // in microseconds
	ProcessingTimeMax int64 `json:"max_time_us"` // in microseconds
}

// NewProcessingPool creates a new processing pool. taskTimeout bounds each task's
// context; zero means no per-task deadline.
func NewProcessingPool(
	name string,
	workerCount int,
	queueSize int,
	taskTimeout time.Duration,
	logger customlog.Logger,
) *ProcessingPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &ProcessingPool{
		name:        name,
		workerCount: workerCount,
		queueSize:   queueSize,
		taskTimeout: taskTimeout,
		logger:      logger,
		taskQueue:   make(chan Task, queueSize),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// SetResultHandler sets the result handler function
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// Submit adds a task to the queue. It returns ErrPoolStopped when the pool is
// not running and ErrQueueFull when no queue slot is free.
func (p *ProcessingPool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Debugf("%s pool not running, rejecting task %s", p.name, task.Name)
		p.countRejected()
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
		p.pending++
		p.metricsMu.Lock()
		p.metrics.QueuedCount++
		p.metricsMu.Unlock()
		return nil
	default:
		p.countRejected()
		return ErrQueueFull
	}
}

func (p *ProcessingPool) countRejected() {
	p.metricsMu.Lock()
	p.metrics.RejectedCount++
	p.metricsMu.Unlock()
}

// Discard drops every queued task that no worker has picked up yet and returns
// how many were dropped. In-flight tasks are not affected.
func (p *ProcessingPool) Discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := 0
	for {
		select {
		case _, ok := <-p.taskQueue:
			if !ok {
				return dropped
			}
			dropped++
			p.pending--
		default:
			if dropped > 0 {
				p.metricsMu.Lock()
				p.metrics.DiscardedCount += int64(dropped)
				p.metricsMu.Unlock()
				p.logger.Debugf("%s pool discarded %d queued tasks", p.name, dropped)
			}
			if p.pending == 0 {
				p.idle.Broadcast()
			}
			return dropped
		}
	}
}

// Wait blocks until no task is queued or in flight, or ctx is done.
func (p *ProcessingPool) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.idle.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.idle.Wait()
	}
	return nil
}

// Start starts the processing pool workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the pool: queued tasks are dropped, in-flight tasks are cancelled
// and awaited.
func (p *ProcessingPool) Stop() {
	p.Discard()

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.taskQueue)
	cancel := p.cancel
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)
	cancel()

	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

// worker runs tasks from the queue
func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for task := range p.taskQueue {
		p.mu.Lock()
		resultHandler := p.resultHandler
		poolCtx := p.ctx
		p.mu.Unlock()

		startTime := time.Now()
		err := p.run(poolCtx, task)
		processingTime := time.Since(startTime)

		p.record(processingTime, err)

		if err != nil {
			p.logger.Debugf("%s pool task %s failed: %v", p.name, task.Name, err)
		}

		if resultHandler != nil {
			resultHandler(&TaskResult{Name: task.Name, Duration: processingTime, Error: err})
		}

		p.mu.Lock()
		p.pending--
		if p.pending == 0 {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

func (p *ProcessingPool) run(parent context.Context, task Task) error {
	ctx := parent
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.taskTimeout)
		defer cancel()
	}
	return task.Run(ctx)
}

func (p *ProcessingPool) record(d time.Duration, err error) {
	us := d.Microseconds()

	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	p.metrics.ProcessedCount++
	p.metrics.LastProcessedTime = time.Now().UnixNano()
	if p.metrics.ProcessingTimeAvg == 0 {
		p.metrics.ProcessingTimeAvg = us
	} else {
		// Simple moving average
		p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + us) / 2
	}
	if us > p.metrics.ProcessingTimeMax {
		p.metrics.ProcessingTimeMax = us
	}
	if err != nil {
		p.metrics.ErrorCount++
	}
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	return p.metrics
}

// logMetrics logs the current metrics
func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, rejected=%d, discarded=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.RejectedCount, metrics.DiscardedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the task queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.taskQueue)
}

// GetQueueCapacity returns the capacity of the task queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
