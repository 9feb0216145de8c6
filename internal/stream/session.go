package stream

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/castarr/internal/observability"
)

// Session is one client-facing concat stream. The concat demuxer re-enters
// /stream with the session ID on every splice, so the failed-attempt window
// survives across the per-item encoder restarts.
type Session struct {
	ID            int64
	ChannelNumber int
	StartedAt     time.Time

	limit  int
	window time.Duration

	mu       sync.Mutex
	failures []time.Time
	attempts int64
	lastSeen time.Time
}

// RecordFailure notes a stream attempt that produced no bytes.
func (s *Session) RecordFailure(now time.Time) {
	observability.SessionAttemptsTotal.WithLabelValues("failed").Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.lastSeen = now
	s.failures = append(s.prune(now), now)
}

// RecordSuccess notes a stream attempt that delivered bytes.
func (s *Session) RecordSuccess(now time.Time) {
	observability.SessionAttemptsTotal.WithLabelValues("ok").Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.lastSeen = now
}

// Throttled reports whether the session has burned through its failure
// budget inside the sliding window.
func (s *Session) Throttled(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = s.prune(now)
	return len(s.failures) >= s.limit
}

// prune drops failures older than the window. Caller holds the lock.
func (s *Session) prune(now time.Time) []time.Time {
	cutoff := now.Add(-s.window)
	kept := s.failures[:0]
	for _, t := range s.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// SessionInfo is a point-in-time snapshot of a session for the sessions API.
type SessionInfo struct {
	ID            int64     `json:"id"`
	ChannelNumber int       `json:"channel_number"`
	StartedAt     time.Time `json:"started_at"`
	LastSeen      time.Time `json:"last_seen,omitempty"`
	Attempts      int64     `json:"attempts"`
	Failures      int       `json:"recent_failures"`
}

// Registry hands out incrementing session IDs and tracks open sessions.
type Registry struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	next     int64
	sessions map[int64]*Session
}

// NewRegistry creates a session registry. limit and window bound the failed
// attempts a session may accumulate before resolution is throttled.
func NewRegistry(limit int, window time.Duration) *Registry {
	return &Registry{
		limit:    limit,
		window:   window,
		sessions: make(map[int64]*Session),
	}
}

// Open registers a new session for a channel and returns it.
func (r *Registry) Open(channelNumber int, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	s := r.newSessionLocked(r.next, channelNumber, now)
	return s
}

// Ensure returns the session with the given ID, registering it if this
// process has not seen it. Unknown IDs arrive when a client replays a
// manifest generated before a restart; session state is process-local, so
// they simply start fresh.
func (r *Registry) Ensure(id int64, channelNumber int, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	if id > r.next {
		r.next = id
	}
	return r.newSessionLocked(id, channelNumber, now)
}

func (r *Registry) newSessionLocked(id int64, channelNumber int, now time.Time) *Session {
	s := &Session{
		ID:            id,
		ChannelNumber: channelNumber,
		StartedAt:     now,
		limit:         r.limit,
		window:        r.window,
	}
	r.sessions[id] = s
	observability.ActiveSessions.Set(float64(len(r.sessions)))
	return s
}

// Get returns the session with the given ID, or nil.
func (r *Registry) Get(id int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Close drops a session from the registry.
func (r *Registry) Close(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	observability.ActiveSessions.Set(float64(len(r.sessions)))
}

// Sweep drops sessions idle longer than maxIdle. Run by the scheduler so
// abandoned manifests do not accumulate forever.
func (r *Registry) Sweep(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		last := s.lastSeen
		if last.IsZero() {
			last = s.StartedAt
		}
		s.mu.Unlock()
		if now.Sub(last) > maxIdle {
			delete(r.sessions, id)
			removed++
		}
	}
	observability.ActiveSessions.Set(float64(len(r.sessions)))
	return removed
}

// Snapshot returns the open sessions for the management API, ordered by ID.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		s.mu.Lock()
		out = append(out, SessionInfo{
			ID:            s.ID,
			ChannelNumber: s.ChannelNumber,
			StartedAt:     s.StartedAt,
			LastSeen:      s.lastSeen,
			Attempts:      s.attempts,
			Failures:      len(s.failures),
		})
		s.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b SessionInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
