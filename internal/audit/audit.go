// Package audit records structured events emitted during environment
// resolution: per-key loads, validation outcomes, policy violations, and
// resolver failures.
//
// A single process-wide Log backs every resolve call. The log is a bounded
// ring: once Capacity events are stored, each new event evicts the oldest.
// A resolve call that enables auditing opens a session; every event emitted
// during that call carries the session token, and the call's events can be
// retrieved in isolation via SessionEvents while Events returns the shared
// ring. Sessions are identified by explicit uuid tokens handed back on the
// result, never by result identity.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Capacity is the fixed size of the global event ring.
const Capacity = 1000

// MaxSessions bounds the per-session attribution table. Opening a session
// beyond the cap drops the oldest session's attribution; its events remain
// in the ring until evicted normally.
const MaxSessions = 128

// EventType classifies audit log entries.
type EventType string

const (
	EnvLoaded         EventType = "env_loaded"
	ValidationFailure EventType = "validation_failure"
	ValidationSuccess EventType = "validation_success"
	PolicyViolation   EventType = "policy_violation"
	ResolverError     EventType = "resolver_error"
)

// SessionToken correlates events with one resolve call.
type SessionToken string

// Event is a single audit record. Key, Source and Error are set where they
// apply to the event type; Metadata carries anything else.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Key       string                 `json:"key,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Cached    bool                   `json:"cached,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Session   SessionToken           `json:"-"`
}

// Log is a bounded, concurrency-safe ring of audit events with per-session
// attribution.
type Log struct {
	mu       sync.Mutex
	ring     [Capacity]Event
	start    int
	count    int
	sessions map[SessionToken][]Event
	order    []SessionToken
}

// NewLog creates an empty audit log.
func NewLog() *Log {
	return &Log{sessions: make(map[SessionToken][]Event)}
}

// defaultLog is the process-wide log shared by calls that do not inject
// their own.
var defaultLog = NewLog()

// Default returns the process-wide audit log.
func Default() *Log {
	return defaultLog
}

// BeginSession opens a per-call session and returns its token. At most
// MaxSessions sessions keep their attribution; older ones are dropped
// oldest first.
func (l *Log) BeginSession() SessionToken {
	token := SessionToken(uuid.NewString())
	l.mu.Lock()
	if len(l.order) >= MaxSessions {
		evicted := l.order[0]
		l.order = l.order[1:]
		delete(l.sessions, evicted)
	}
	l.sessions[token] = nil
	l.order = append(l.order, token)
	l.mu.Unlock()
	return token
}

// Record appends an event to the ring, evicting the oldest entry when full.
// Events carrying a known session token are additionally attributed to that
// session.
func (l *Log) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < Capacity {
		l.ring[(l.start+l.count)%Capacity] = event
		l.count++
	} else {
		l.ring[l.start] = event
		l.start = (l.start + 1) % Capacity
	}

	if event.Session != "" {
		if events, ok := l.sessions[event.Session]; ok {
			l.sessions[event.Session] = append(events, event)
		}
	}
}

// Events returns a snapshot of the global ring, oldest first.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.ring[(l.start+i)%Capacity]
	}
	return out
}

// SessionEvents returns only the events attributed to the given session, in
// emission order. Unknown and evicted tokens yield no events.
func (l *Log) SessionEvents(token SessionToken) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.sessions[token]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Clear empties the ring and drops all session attributions.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.start = 0
	l.count = 0
	l.sessions = make(map[SessionToken][]Event)
	l.order = nil
}

// Len returns the number of events currently held in the ring.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
