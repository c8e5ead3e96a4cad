// Package session tracks one journal stream run for the session store.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/setevik/journalstream/internal/journal"
)

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeClean   Outcome = "clean"
	OutcomeFailed  Outcome = "failed"
)

// Session summarizes a stream: what ran, how many records it produced,
// the last cursor seen and how it ended. Records themselves are not kept.
type Session struct {
	ID           string
	InstanceID   string
	StartedAt    time.Time
	EndedAt      time.Time
	Executable   string
	Args         []string
	Records      int
	DecodeErrors int
	LastCursor   string
	Outcome      Outcome
	Error        string

	mu sync.Mutex
}

// New creates a running Session for stream, sharing the stream's ID.
func New(instanceID string, ts time.Time, stream *journal.Stream) *Session {
	exe := stream.Options().Executable
	if exe == "" {
		exe = journal.DefaultExecutable
	}
	return &Session{
		ID:         stream.ID(),
		InstanceID: instanceID,
		StartedAt:  ts,
		Executable: exe,
		Args:       stream.Args(),
		Outcome:    OutcomeRunning,
	}
}

// Track subscribes to stream and keeps the counters and cursor current.
// The returned function detaches it.
func (s *Session) Track(stream *journal.Stream) func() {
	return stream.Subscribe(func(sig journal.Signal) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch sig.Kind {
		case journal.SignalMessage:
			s.Records++
			if c := sig.Record.Cursor(); c != "" {
				s.LastCursor = c
			}
		case journal.SignalError:
			var decodeErr *journal.DecodeError
			if errors.As(sig.Err, &decodeErr) {
				s.DecodeErrors++
			}
		}
	})
}

// Finish records the end of the session. err is the stream's fatal error.
func (s *Session) Finish(ts time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.EndedAt = ts
	if err != nil {
		s.Outcome = OutcomeFailed
		s.Error = err.Error()
		return
	}
	s.Outcome = OutcomeClean
}

// Snapshot returns a copy safe to read while the stream is running.
func (s *Session) Snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Session{
		ID:           s.ID,
		InstanceID:   s.InstanceID,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		Executable:   s.Executable,
		Args:         append([]string(nil), s.Args...),
		Records:      s.Records,
		DecodeErrors: s.DecodeErrors,
		LastCursor:   s.LastCursor,
		Outcome:      s.Outcome,
		Error:        s.Error,
	}
}

// Duration is how long the session ran, or has been running.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Label returns a human-readable label for the outcome.
func (o Outcome) Label() string {
	switch o {
	case OutcomeRunning:
		return "Running"
	case OutcomeClean:
		return "Exited"
	case OutcomeFailed:
		return "Failed"
	default:
		return string(o)
	}
}
