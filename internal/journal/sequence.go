package journal

import (
	"context"
	"iter"
	"sync"
)

// Sequence is the pull-mode view of a Stream. It subscribes to the same
// signals as push subscribers and queues records without bound, so the
// reader goroutine never waits on a slow consumer.
//
// A Sequence has a single consumer.
type Sequence struct {
	mu          sync.Mutex
	queue       []Record
	done        bool
	delivered   int
	ready       chan struct{}
	unsubscribe func()
}

func newSequence(e *emitter) *Sequence {
	s := &Sequence{ready: make(chan struct{}, 1)}

	s.mu.Lock()
	s.unsubscribe = e.subscribe(s.handle)
	s.mu.Unlock()

	return s
}

func (s *Sequence) handle(sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}

	switch sig.Kind {
	case SignalMessage:
		s.queue = append(s.queue, sig.Record)
	case SignalError, SignalExit:
		// Any error ends the sequence, decode errors included. The error
		// itself is only visible to push subscribers.
		s.finishLocked()
	}
	s.wake()
}

// finishLocked stops accepting signals. Records already queued are still
// handed out by Next.
func (s *Sequence) finishLocked() {
	s.done = true
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Sequence) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until a record is queued, the stream ends, or ctx is done.
// It returns false once the stream has ended and the queue is drained.
func (s *Sequence) Next(ctx context.Context) (Record, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			rec := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.delivered++
			s.mu.Unlock()
			return rec, true
		}
		if s.done {
			s.mu.Unlock()
			return nil, false
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// All ranges over the records in arrival order.
func (s *Sequence) All(ctx context.Context) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			rec, ok := s.Next(ctx)
			if !ok || !yield(rec) {
				return
			}
		}
	}
}

// Count returns how many records Next has handed out so far. Once the
// sequence is exhausted this is its total.
func (s *Sequence) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// Close detaches the sequence and drops anything still queued.
func (s *Sequence) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		s.finishLocked()
	}
	s.queue = nil
	s.wake()
}

// end terminates a sequence created after its stream already finished.
func (s *Sequence) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		s.finishLocked()
		s.wake()
	}
}
