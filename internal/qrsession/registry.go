package qrsession

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Default timings.
const (
	DefaultMaxSession = 300 * time.Second
	DefaultCycleTime  = 60 * time.Second
	DefaultCometWait  = 30 * time.Second
)

// PollStatus is the single-token answer to a browser long-poll.
type PollStatus string

const (
	PollContinue PollStatus = "c"
	PollProgress PollStatus = "p"
	PollReturned PollStatus = "r"
	PollSuccess  PollStatus = "s"
)

// Config holds the registry timings. Zero values select the defaults.
type Config struct {
	MaxSession time.Duration
	CycleTime  time.Duration
}

type session struct {
	id             string
	ownerSessionID string
	expires        time.Time
	sync           *Synchronizer
}

// Registry owns the set of live QR sessions.
//
// mu guards membership (sessions, lastID) and the sweeper lifecycle (stop).
// Synchronizer state changes made on behalf of the registry happen while mu is held,
// but waiting on a Synchronizer never does.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	lastID   uint64

	// stop is non-nil while a sweeper goroutine is running
	stop chan struct{}

	maxSession time.Duration
	cycleTime  time.Duration
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. The sweeper is not started until the first session is created.
func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	if cfg.MaxSession <= 0 {
		cfg.MaxSession = DefaultMaxSession
	}
	if cfg.CycleTime <= 0 {
		cfg.CycleTime = DefaultCycleTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:   make(map[string]*session),
		maxSession: cfg.MaxSession,
		cycleTime:  cfg.CycleTime,
		logger:     logger.With(slog.String("component", "qrsession")),
	}
}

// CreateSession registers a new QR session owned by the given browser session and returns its id.
func (r *Registry) CreateSession(ownerSessionID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	id := strconv.FormatUint(r.lastID, 10)
	r.sessions[id] = &session{
		id:             id,
		ownerSessionID: ownerSessionID,
		expires:        time.Now().Add(r.maxSession),
		sync:           newSynchronizer(),
	}

	if r.stop == nil {
		r.stop = make(chan struct{})
		go r.sweep(r.stop)
	}

	r.logger.Debug("QR session created",
		slog.String("qr_session_id", id),
		slog.Int("active_sessions", len(r.sessions)))

	return id
}

// LookupSynchronizer returns the synchronizer of a live session.
func (r *Registry) LookupSynchronizer(id string) (*Synchronizer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.sync, true
}

// LookupOwnerSessionID returns the browser session that created the QR session.
func (r *Registry) LookupOwnerSessionID(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	return s.ownerSessionID, true
}

// MarkInProgress flags that the wallet was invoked. Absent sessions are ignored:
// the browser may already have given up.
func (r *Registry) MarkInProgress(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.sync.SetInProgress()
	}
}

// MarkReady signals a persisted result to the session's waiter.
// It reports whether a ready signal was delivered; absent sessions are ignored.
func (r *Registry) MarkReady(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	return s.sync.setReady()
}

// CancelSession removes the session and wakes any waiter with Returned. Idempotent.
func (r *Registry) CancelSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		s.sync.wakeReturned()
	}
}

// RemoveSession removes the session without waking anybody.
// Used once a waiter has consumed Ready.
func (r *Registry) RemoveSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Wait performs one bounded wait on the session. Absent sessions yield Returned.
// A consumed Ready removes the session, so a later Wait on the same id returns Returned.
func (r *Registry) Wait(ctx context.Context, id string, timeout time.Duration) WaitResult {
	syn, ok := r.LookupSynchronizer(id)
	if !ok {
		return Returned
	}

	result := syn.Wait(ctx, timeout)
	if result == Ready {
		r.RemoveSession(id)
	}
	return result
}

// Poll is Wait mapped to the browser long-poll tokens.
func (r *Registry) Poll(ctx context.Context, id string, timeout time.Duration) PollStatus {
	syn, ok := r.LookupSynchronizer(id)
	if !ok {
		return PollReturned
	}

	switch r.Wait(ctx, id, timeout) {
	case Ready:
		return PollSuccess
	case Returned:
		return PollReturned
	default:
		if syn.IsInProgress() {
			return PollProgress
		}
		return PollContinue
	}
}

// Close stops the sweeper and releases every waiter with Returned.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	for id, s := range r.sessions {
		delete(r.sessions, id)
		s.sync.wakeReturned()
	}
}

// sweep runs until the registry is empty or stop is closed.
func (r *Registry) sweep(stop chan struct{}) {
	r.logger.Debug("QR session sweeper started")

	ticker := time.NewTicker(r.cycleTime)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			r.logger.Debug("QR session sweeper stopped")
			return
		case <-ticker.C:
			if !r.evictExpired(stop) {
				r.logger.Debug("QR session sweeper stopped, no active sessions")
				return
			}
		}
	}
}

// evictExpired removes sessions whose deadline has passed and reports whether the
// sweeper that owns stop should keep running.
func (r *Registry) evictExpired(stop chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// a newer sweeper took over after Close
	if r.stop != stop {
		return false
	}

	now := time.Now()
	for id, s := range r.sessions {
		if now.Before(s.expires) {
			continue
		}
		delete(r.sessions, id)
		s.sync.wakeReturned()

		r.logger.Info("QR session removed due to timeout",
			slog.String("qr_session_id", id))
	}

	if len(r.sessions) == 0 {
		r.stop = nil
		return false
	}
	return true
}
