package qrsession

import (
	"context"
	"sync"
	"time"
)

// WaitResult is the outcome of a bounded wait on a Synchronizer.
type WaitResult int

const (
	// Continue means nothing happened before the timeout; the caller should poll again.
	Continue WaitResult = iota

	// Ready means the orchestrator completed and its result has been persisted.
	Ready

	// Returned means the session was cancelled, timed out or never existed.
	Returned
)

func (r WaitResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case Ready:
		return "ready"
	case Returned:
		return "returned"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a Synchronizer.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in_progress"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Synchronizer is the rendezvous point between a long-polling browser and the
// wallet request that eventually produces the result.
//
// ready carries at most one token, so Ready is delivered to at most one waiter.
// returned is closed on cancellation so every current and future waiter sees Returned.
type Synchronizer struct {
	mu       sync.Mutex
	state    State
	ready    chan struct{}
	returned chan struct{}
	closed   bool
}

func newSynchronizer() *Synchronizer {
	return &Synchronizer{
		ready:    make(chan struct{}, 1),
		returned: make(chan struct{}),
	}
}

// SetInProgress records that the wallet has been invoked. It never moves the state backwards.
func (s *Synchronizer) SetInProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		s.state = StateInProgress
	}
}

// IsInProgress reports whether the wallet has been invoked and no result is available yet.
func (s *Synchronizer) IsInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateInProgress
}

// State returns the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setReady moves the synchronizer to Ready and wakes one waiter.
// It returns false if the synchronizer was already ready or has been returned.
func (s *Synchronizer) setReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady || s.closed {
		return false
	}
	s.state = StateReady
	s.ready <- struct{}{} // buffered and only ever sent once
	return true
}

// wakeReturned releases all waiters with Returned. Safe to call more than once.
func (s *Synchronizer) wakeReturned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.returned)
}

// Wait blocks until the synchronizer becomes Ready, is returned, the timeout
// elapses or ctx is done. If a result was already signalled it returns immediately.
//
// A timeout or a cancelled ctx both yield Continue. The waiter that takes the Ready
// token releases every other waiter with Returned.
func (s *Synchronizer) Wait(ctx context.Context, timeout time.Duration) WaitResult {
	// a pending Ready token wins over a concurrent cancellation
	select {
	case <-s.ready:
		return s.consumeReady()
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return s.consumeReady()
	case <-s.returned:
		return Returned
	case <-timer.C:
		return Continue
	case <-ctx.Done():
		return Continue
	}
}

func (s *Synchronizer) consumeReady() WaitResult {
	s.wakeReturned()
	return Ready
}
