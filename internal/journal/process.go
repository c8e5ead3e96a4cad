package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the lifecycle of the journalctl process behind a Stream.
type State int32

const (
	// StateIdle is a constructed stream that has not been started.
	StateIdle State = iota
	// StateStarting means the spawn was requested but has not succeeded yet.
	StateStarting
	// StateRunning means the process is up and its output is being read.
	StateRunning
	// StateTerminated is final: the process exited or never started.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// stopGrace is how long a process may ignore SIGTERM after a stop before
// its pipes are closed.
const stopGrace = 5 * time.Second

// syncBuffer collects stderr while exec copies into it from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Start spawns journalctl and begins delivering signals. A spawn failure
// is both emitted as an error signal and returned; no exit signal follows
// it, but Done is closed and any Sequence ends.
func (s *Stream) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	path := s.opts.executable()
	cmd := exec.CommandContext(ctx, path, s.args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.spawnFailed(&SpawnError{Path: path, Err: err})
	}
	if err := cmd.Start(); err != nil {
		return s.spawnFailed(&SpawnError{Path: path, Err: err})
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	s.state.Store(int32(StateRunning))

	slog.Info("journal stream started",
		"session", s.id,
		"executable", path,
		"pid", cmd.Process.Pid,
		"follow", s.opts.Follow(),
	)
	slog.Debug("journal stream arguments", "session", s.id, "args", s.args)

	go s.run(ctx, cmd, stdout)
	return nil
}

func (s *Stream) spawnFailed(err *SpawnError) error {
	slog.Error("journal stream failed to start", "session", s.id, "error", err)

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(StateTerminated))

	s.emitter.emit(Signal{Kind: SignalError, Err: err})
	close(s.done)
	return err
}

// run reads stdout line by line until EOF, then reaps the process. Every
// signal for a running stream is emitted from here, so delivery is ordered.
func (s *Stream) run(ctx context.Context, cmd *exec.Cmd, stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		// A final line without a newline is still delivered at EOF.
		if len(line) > 0 && (err == nil || errors.Is(err, io.EOF)) {
			s.handleLine(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				slog.Warn("reading journal output", "session", s.id, "error", err)
			}
			break
		}
	}

	s.terminate(ctx, cmd.Wait())
}

func (s *Stream) handleLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	rec, err := DecodeLine(line)
	if err != nil {
		slog.Debug("skipping unparseable journal line", "session", s.id, "error", err)
		s.emitter.emit(Signal{Kind: SignalError, Err: err})
		return
	}
	s.emitter.emit(Signal{Kind: SignalMessage, Record: rec})
}

// terminate maps the wait result to the final signals: an error signal on
// abnormal exit, then always exit.
func (s *Stream) terminate(ctx context.Context, waitErr error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	var err error
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case stopped || ctx.Err() != nil:
		slog.Debug("journal process stopped on request", "session", s.id, "status", waitErr)
	case errors.As(waitErr, &exitErr):
		err = &ExitError{Code: exitErr.ExitCode(), Stderr: s.stderr.String()}
	default:
		err = fmt.Errorf("waiting for %s: %w", s.opts.executable(), waitErr)
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(StateTerminated))

	if err != nil {
		slog.Warn("journal process exited abnormally", "session", s.id, "error", err)
		s.emitter.emit(Signal{Kind: SignalError, Err: err})
	} else {
		slog.Info("journal process exited", "session", s.id)
	}
	s.emitter.emit(Signal{Kind: SignalExit})
	close(s.done)
}

// Stop sends SIGTERM to the process and reports whether the signal was
// delivered. The stream then ends through the normal exit path.
//
// A process that dies from a delivered stop is reported as a clean exit:
// only the exit signal fires and Wait returns nil, even though journalctl
// itself terminated on SIGTERM. If the signal could not be delivered, for
// example because the process already exited on its own, its real exit
// status is reported as usual.
func (s *Stream) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil || s.State() == StateTerminated {
		return false
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		slog.Debug("signalling journal process", "session", s.id, "error", err)
		return false
	}
	s.stopped = true
	return true
}
