// Package journal runs journalctl as a subprocess and turns its JSON output
// into Records, delivered both to push subscribers and to a pull Sequence.
package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"
)

// Record is a single journal entry. Keys are journal field names.
//
// __CURSOR, __REALTIME_TIMESTAMP, __MONOTONIC_TIMESTAMP and _BOOT_ID are
// always emitted by journalctl; MESSAGE, SYSLOG_IDENTIFIER and _HOSTNAME are
// filled with "" by the decoder when missing.
type Record map[string]string

func (r Record) Cursor() string     { return r[FieldCursor] }
func (r Record) Message() string    { return r[FieldMessage] }
func (r Record) Identifier() string { return r[FieldIdentifier] }
func (r Record) Hostname() string   { return r[FieldHostname] }
func (r Record) BootID() string     { return r[FieldBootID] }

// Time converts __REALTIME_TIMESTAMP (microseconds since the epoch).
func (r Record) Time() (time.Time, error) {
	usec, err := strconv.ParseInt(r[FieldRealtime], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", FieldRealtime, err)
	}
	return time.UnixMicro(usec), nil
}

// Monotonic converts __MONOTONIC_TIMESTAMP (microseconds since boot).
func (r Record) Monotonic() (time.Duration, error) {
	usec, err := strconv.ParseInt(r[FieldMonotonic], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", FieldMonotonic, err)
	}
	return time.Duration(usec) * time.Microsecond, nil
}

// Priority returns the PRIORITY field, or -1 when it is absent or invalid.
func (r Record) Priority() int {
	p, err := strconv.Atoi(r[FieldPriority])
	if err != nil {
		return -1
	}
	return p
}

// DecodeError reports a stdout line that could not be parsed. It is not
// fatal: the stream moves on to the next line.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding journal line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// trailingComma matches the stray separator some journalctl builds emit
// before the closing brace.
var trailingComma = regexp.MustCompile(`,(\s*)}\s*$`)

// repairLine removes a trailing comma before the final '}'.
func repairLine(line []byte) []byte {
	return trailingComma.ReplaceAll(line, []byte("$1}"))
}

// DecodeLine parses one line of journalctl -o json output.
func DecodeLine(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)

	dec := json.NewDecoder(bytes.NewReader(repairLine(line)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Line: string(line), Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Line: string(line), Err: errors.New("not a JSON object")}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Line: string(line), Err: errors.New("trailing data after object")}
	}

	rec := make(Record, len(raw)+len(requiredFields))
	for k, v := range raw {
		rec[k] = flatten(v)
	}
	for _, f := range requiredFields {
		if _, ok := rec[f]; !ok {
			rec[f] = ""
		}
	}
	return rec, nil
}

// flatten reduces a JSON value to a string. journalctl emits byte arrays for
// binary fields and string arrays for fields that occur more than once.
func flatten(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case []any:
		if b, ok := byteArray(val); ok {
			return string(b)
		}
		// Multi-value field; take first.
		if len(val) > 0 {
			return flatten(val[0])
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func byteArray(vals []any) ([]byte, bool) {
	if len(vals) == 0 {
		return nil, false
	}
	b := make([]byte, 0, len(vals))
	for _, v := range vals {
		n, ok := v.(json.Number)
		if !ok {
			return nil, false
		}
		i, err := n.Int64()
		if err != nil || i < 0 || i > 255 {
			return nil, false
		}
		b = append(b, byte(i))
	}
	return b, true
}
