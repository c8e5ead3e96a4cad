package journal

import (
	"strconv"
	"strings"
)

// DefaultExecutable is spawned when Options.Executable is empty.
const DefaultExecutable = "journalctl"

// defaultLines is the record limit applied when no time range and no
// explicit limit are given.
const defaultLines = 10

// Options describes a single journalctl invocation. The zero value follows
// the journal and prints the last ten entries first.
type Options struct {
	// All shows every field in full, including unprintable ones.
	All bool
	// Lines limits the number of records. Nil means unset.
	Lines *int
	// Since and Until bound the time range, "YYYY-MM-DD[ HH:MM[:SS]]".
	// Setting Until disables follow mode.
	Since string
	Until string
	// Identifier filters on SYSLOG_IDENTIFIER.
	Identifier string
	// Unit filters on a systemd unit.
	Unit string
	// Matches are FIELD=value filters; all must match.
	Matches []Match
	// Priority filters on a single level or an inclusive range.
	Priority *Priority
	// Fields narrows the output to the named fields.
	Fields []string
	// AfterCursor resumes after a previously seen __CURSOR.
	AfterCursor string
	// Executable overrides the journalctl binary.
	Executable string
}

// Match is a single FIELD=value filter.
type Match struct {
	Field string
	Value string
}

func (m Match) String() string {
	return m.Field + "=" + m.Value
}

// ParseMatch splits "FIELD=value". The value may itself contain '='.
func ParseMatch(s string) (Match, error) {
	field, value, ok := strings.Cut(s, "=")
	if !ok {
		return Match{}, &OptionError{Option: "match", Value: s, Reason: "must be FIELD=value"}
	}
	if _, err := ValidateField(field); err != nil {
		return Match{}, err
	}
	return Match{Field: field, Value: value}, nil
}

// Priority is either a single level or an inclusive From..To range.
type Priority struct {
	From  int
	To    int
	Range bool
}

// PriorityLevel returns a single-level priority filter.
func PriorityLevel(level int) *Priority {
	return &Priority{From: level, To: level}
}

// PriorityRange returns an inclusive priority range filter.
func PriorityRange(from, to int) *Priority {
	return &Priority{From: from, To: to, Range: true}
}

func (p Priority) String() string {
	if p.Range {
		return strconv.Itoa(p.From) + ".." + strconv.Itoa(p.To)
	}
	return strconv.Itoa(p.From)
}

var priorityNames = map[string]int{
	"emerg":   0,
	"alert":   1,
	"crit":    2,
	"err":     3,
	"warning": 4,
	"notice":  5,
	"info":    6,
	"debug":   7,
}

// ParsePriority accepts "3", "0..3", "err" or "emerg..err".
func ParsePriority(s string) (*Priority, error) {
	from, to, isRange := strings.Cut(s, "..")
	lo, err := parsePriorityLevel(from)
	if err != nil {
		return nil, err
	}
	if !isRange {
		return PriorityLevel(lo), nil
	}
	hi, err := parsePriorityLevel(to)
	if err != nil {
		return nil, err
	}
	return PriorityRange(lo, hi), nil
}

func parsePriorityLevel(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, ok := priorityNames[strings.ToLower(s)]; ok {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &OptionError{Option: "priority", Value: s, Reason: "not a number or level name"}
	}
	return ValidatePriority(f)
}

func (o Options) executable() string {
	if o.Executable == "" {
		return DefaultExecutable
	}
	return o.Executable
}

// Follow reports whether the options select continuous follow mode.
func (o Options) Follow() bool {
	return o.Until == ""
}

// IntPtr is a convenience for setting Options.Lines.
func IntPtr(n int) *int {
	return &n
}

