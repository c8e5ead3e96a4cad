package journal

import (
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stream owns one journalctl process. Records reach push subscribers
// through Subscribe and friends, and at most one pull consumer through
// Records. Both see the same records in the same order.
type Stream struct {
	id      string
	opts    Options
	args    []string
	emitter *emitter

	state     atomic.Int32
	sequenced atomic.Bool
	stderr    syncBuffer
	done      chan struct{}

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
	err     error
}

// New validates opts and prepares a stream without spawning anything. When
// fields are given they replace opts.Fields.
func New(opts Options, fields ...string) (*Stream, error) {
	if len(fields) > 0 {
		opts.Fields = fields
	}
	args, err := BuildArgs(opts)
	if err != nil {
		return nil, err
	}
	return &Stream{
		id:      uuid.NewString(),
		opts:    opts,
		args:    args,
		emitter: newEmitter(),
		done:    make(chan struct{}),
	}, nil
}

// ID identifies this stream in logs and in the session store.
func (s *Stream) ID() string {
	return s.id
}

// Args returns the journalctl arguments the stream runs with.
func (s *Stream) Args() []string {
	return slices.Clone(s.args)
}

// Options returns the options the stream was built from.
func (s *Stream) Options() Options {
	return s.opts
}

func (s *Stream) State() State {
	return State(s.state.Load())
}

// Stderr returns the process's standard error collected so far.
func (s *Stream) Stderr() string {
	return s.stderr.String()
}

// Subscribe attaches h to every signal emitted from now on. The returned
// function detaches it.
func (s *Stream) Subscribe(h Handler) func() {
	return s.emitter.subscribe(h)
}

// OnMessage subscribes fn to message signals only.
func (s *Stream) OnMessage(fn func(Record)) func() {
	return s.Subscribe(func(sig Signal) {
		if sig.Kind == SignalMessage {
			fn(sig.Record)
		}
	})
}

// OnError subscribes fn to error signals only.
func (s *Stream) OnError(fn func(error)) func() {
	return s.Subscribe(func(sig Signal) {
		if sig.Kind == SignalError {
			fn(sig.Err)
		}
	})
}

// OnExit subscribes fn to the exit signal.
func (s *Stream) OnExit(fn func()) func() {
	return s.Subscribe(func(sig Signal) {
		if sig.Kind == SignalExit {
			fn()
		}
	})
}

// Records creates the stream's pull sequence. Only one may exist per
// stream; later calls return ErrSequenceExists. Create it before Start to
// see every record.
func (s *Stream) Records() (*Sequence, error) {
	if !s.sequenced.CompareAndSwap(false, true) {
		return nil, ErrSequenceExists
	}
	seq := newSequence(s.emitter)
	// The state is set before the final signal goes out, so a sequence
	// that subscribed too late to see it ends here instead.
	if s.State() == StateTerminated {
		seq.end()
	}
	return seq, nil
}

// Done is closed once the stream has terminated, including when the
// process failed to spawn.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the stream terminates and returns its fatal error, if
// any. Decode errors are never returned here.
func (s *Stream) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
