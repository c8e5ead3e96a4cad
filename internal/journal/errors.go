package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

var (
	// ErrExecutableNotFound matches a SpawnError for a missing journalctl binary.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrPermissionDenied matches a SpawnError for a binary that may not be executed.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSequenceExists is returned by Records when the stream already has a pull sequence.
	ErrSequenceExists = errors.New("record sequence already created for this stream")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("stream already started")
)

// SpawnError reports that the journalctl process could not be started.
// Use errors.Is with ErrExecutableNotFound or ErrPermissionDenied to tell
// the common causes apart.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	switch {
	case e.notFound():
		return fmt.Sprintf("spawning %s: executable not found", e.Path)
	case e.permission():
		return fmt.Sprintf("spawning %s: permission denied", e.Path)
	default:
		return fmt.Sprintf("spawning %s: %v", e.Path, e.Err)
	}
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	switch target {
	case ErrExecutableNotFound:
		return e.notFound()
	case ErrPermissionDenied:
		return e.permission()
	}
	return false
}

func (e *SpawnError) notFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist)
}

func (e *SpawnError) permission() bool {
	return errors.Is(e.Err, fs.ErrPermission)
}

// ExitError reports that journalctl exited abnormally. Stderr holds
// everything the process wrote to standard error, verbatim.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("process exited with code %d", e.Code)
}
