package journal

import "sync"

// SignalKind identifies what a Signal carries.
type SignalKind int

const (
	// SignalMessage carries one decoded Record.
	SignalMessage SignalKind = iota
	// SignalError carries an error. Decode errors leave the process running
	// but still end a pull Sequence.
	SignalError
	// SignalExit marks the end of the stream and has no payload.
	SignalExit
)

func (k SignalKind) String() string {
	switch k {
	case SignalMessage:
		return "message"
	case SignalError:
		return "error"
	case SignalExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Signal is one push-mode notification.
type Signal struct {
	Kind   SignalKind
	Record Record
	Err    error
}

// Handler receives signals synchronously on the stream's reader goroutine.
// It must not block for long: the next line is not read until every
// handler has returned.
type Handler func(Signal)

// emitter is a multi-subscriber broadcast. Subscribers attached after a
// signal was emitted do not receive it.
type emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Handler
	order  []int
}

func newEmitter() *emitter {
	return &emitter{subs: make(map[int]Handler)}
}

// subscribe registers h and returns a function that removes it.
func (e *emitter) subscribe(h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = h
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(id) })
	}
}

func (e *emitter) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subs, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
}

// emit delivers s to a snapshot of the current subscribers, in the order
// they subscribed. Handlers may subscribe or unsubscribe while running.
func (e *emitter) emit(s Signal) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.order))
	for _, id := range e.order {
		handlers = append(handlers, e.subs[id])
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}
