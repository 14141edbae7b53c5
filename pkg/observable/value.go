// Package observable provides a latest-value publication point with one writer
// and any number of readers.
package observable

import "sync"

// Value holds the most recent T. Subscribers receive updates on a one-slot
// channel: a slow subscriber skips intermediate values but always ends up with
// the latest one.
type Value[T any] struct {
	mu     sync.RWMutex
	latest T
	subs   map[int]chan T
	nextID int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{latest: initial, subs: make(map[int]chan T)}
}

// Get returns the latest value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.latest
}

// Set overwrites the latest value and notifies subscribers.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latest = val
	for _, ch := range v.subs {
		offer(ch, val)
	}
}

// Update applies fn to the latest value under the write lock.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latest = fn(v.latest)
	for _, ch := range v.subs {
		offer(ch, v.latest)
	}
	return v.latest
}

// Subscribe returns a channel primed with the current value and a cancel func
// that closes it.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	ch := make(chan T, 1)
	ch <- v.latest
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
			close(ch)
		})
	}
}

// offer replaces whatever is pending in ch with val. Caller holds the write lock,
// so there is no competing sender.
func offer[T any](ch chan T, val T) {
	select {
	case ch <- val:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- val
}
