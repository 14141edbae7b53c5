package teleop

import "errors"

var (
	ErrLoopRunning = errors.New("control loop already running")
	ErrLoopStopped = errors.New("control loop stopped")
	ErrQueueFull   = errors.New("transmit queue full")
	ErrTxClosed    = errors.New("transmitter closed")
)
