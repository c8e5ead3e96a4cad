package journal

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	fieldPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)
	unitPattern  = regexp.MustCompile(`^[A-Za-z0-9:\-_.\\]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?: \d{2}:\d{2}(?::\d{2})?)?$`)
)

// dateLayouts are tried in order against values that already match datePattern.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// OptionError describes a configuration value that failed validation.
type OptionError struct {
	Option string
	Value  string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Option, e.Value, e.Reason)
}

// ValidateField checks a journal field name such as MESSAGE or _SYSTEMD_UNIT.
func ValidateField(name string) (string, error) {
	if !fieldPattern.MatchString(name) {
		return "", &OptionError{Option: "field", Value: name, Reason: "must match [A-Z0-9_]+"}
	}
	return name, nil
}

// ValidateIdentifier checks a syslog identifier.
func ValidateIdentifier(id string) (string, error) {
	if id == "" {
		return "", &OptionError{Option: "identifier", Value: id, Reason: "must not be empty"}
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", &OptionError{Option: "identifier", Value: id, Reason: "must not contain whitespace"}
	}
	return id, nil
}

// ValidateUnit checks a systemd unit name.
func ValidateUnit(unit string) (string, error) {
	if !unitPattern.MatchString(unit) {
		return "", &OptionError{Option: "unit", Value: unit, Reason: `must match [A-Za-z0-9:\-_.\\]+`}
	}
	return unit, nil
}

// ValidateDate checks a "YYYY-MM-DD[ HH:MM[:SS]]" timestamp and returns it
// parsed in the local time zone, which is how journalctl interprets it.
func ValidateDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, &OptionError{Option: "date", Value: s, Reason: "must match YYYY-MM-DD[ HH:MM[:SS]]"}
	}
	for _, layout := range dateLayouts {
		if len(layout) != len(s) {
			continue
		}
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			return time.Time{}, &OptionError{Option: "date", Value: s, Reason: "not a valid calendar date"}
		}
		return t, nil
	}
	return time.Time{}, &OptionError{Option: "date", Value: s, Reason: "must match YYYY-MM-DD[ HH:MM[:SS]]"}
}

// ValidateInteger checks that v is a finite, non-negative integer.
func ValidateInteger(v float64) (int, error) {
	value := strconv.FormatFloat(v, 'f', -1, 64)
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, &OptionError{Option: "integer", Value: value, Reason: "must be a finite number"}
	case v != math.Trunc(v):
		return 0, &OptionError{Option: "integer", Value: value, Reason: "must be an integer"}
	case v < 0:
		return 0, &OptionError{Option: "integer", Value: value, Reason: "must not be negative"}
	case v > math.MaxInt32:
		return 0, &OptionError{Option: "integer", Value: value, Reason: "out of range"}
	}
	return int(v), nil
}

// ParseInteger parses text input (flags, environment) with the same rules as
// ValidateInteger, so "1.5", "-3" and "NaN" are all rejected.
func ParseInteger(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &OptionError{Option: "integer", Value: s, Reason: "not a number"}
	}
	return ValidateInteger(f)
}

// ValidatePriority checks a syslog priority level between 0 (emerg) and 7 (debug).
func ValidatePriority(v float64) (int, error) {
	n, err := ValidateInteger(v)
	if err != nil {
		return 0, &OptionError{Option: "priority", Value: strconv.FormatFloat(v, 'f', -1, 64), Reason: err.(*OptionError).Reason}
	}
	if n > 7 {
		return 0, &OptionError{Option: "priority", Value: strconv.Itoa(n), Reason: "must be between 0 and 7"}
	}
	return n, nil
}
