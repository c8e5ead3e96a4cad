package journal

import (
	"slices"
	"strconv"
)

// Journal field names the decoder depends on.
const (
	FieldCursor     = "__CURSOR"
	FieldRealtime   = "__REALTIME_TIMESTAMP"
	FieldMonotonic  = "__MONOTONIC_TIMESTAMP"
	FieldBootID     = "_BOOT_ID"
	FieldMessage    = "MESSAGE"
	FieldIdentifier = "SYSLOG_IDENTIFIER"
	FieldHostname   = "_HOSTNAME"
	FieldPriority   = "PRIORITY"
)

// requiredFields are always requested when the output is narrowed, since
// the decoder normalizes them.
var requiredFields = []string{FieldMessage, FieldIdentifier, FieldHostname}

// BuildArgs translates opts into journalctl arguments. The result is
// deterministic and every option is validated before it is appended.
func BuildArgs(opts Options) ([]string, error) {
	args := []string{"--output=json"}

	if opts.Until != "" {
		if _, err := ValidateDate(opts.Until); err != nil {
			return nil, err
		}
		args = append(args, "--until="+opts.Until)
	} else {
		args = append(args, "--follow")
	}

	if opts.All {
		args = append(args, "--all")
	}

	switch {
	case opts.Lines != nil:
		n, err := ValidateInteger(float64(*opts.Lines))
		if err != nil {
			return nil, err
		}
		args = append(args, "--lines="+strconv.Itoa(n))
	case opts.Since == "" && opts.Until == "":
		args = append(args, "--lines="+strconv.Itoa(defaultLines))
	}

	if opts.Since != "" {
		since, err := ValidateDate(opts.Since)
		if err != nil {
			return nil, err
		}
		if opts.Until != "" {
			until, _ := ValidateDate(opts.Until)
			if since.After(until) {
				return nil, &OptionError{
					Option: "since",
					Value:  opts.Since,
					Reason: "must not be after until " + strconv.Quote(opts.Until),
				}
			}
		}
		args = append(args, "--since="+opts.Since)
	}

	if p := opts.Priority; p != nil {
		if _, err := ValidatePriority(float64(p.From)); err != nil {
			return nil, err
		}
		if p.Range {
			if _, err := ValidatePriority(float64(p.To)); err != nil {
				return nil, err
			}
		}
		args = append(args, "--priority="+p.String())
	}

	if opts.Identifier != "" {
		if _, err := ValidateIdentifier(opts.Identifier); err != nil {
			return nil, err
		}
		args = append(args, "--identifier="+opts.Identifier)
	}

	if opts.Unit != "" {
		if _, err := ValidateUnit(opts.Unit); err != nil {
			return nil, err
		}
		args = append(args, "--unit="+opts.Unit)
	}

	if opts.AfterCursor != "" {
		args = append(args, "--after-cursor="+opts.AfterCursor)
	}

	for _, m := range opts.Matches {
		if _, err := ValidateField(m.Field); err != nil {
			return nil, err
		}
		args = append(args, m.String())
	}

	if len(opts.Fields) > 0 {
		for _, f := range opts.Fields {
			if _, err := ValidateField(f); err != nil {
				return nil, err
			}
			args = append(args, "--output-fields="+f)
		}
		for _, f := range requiredFields {
			if !slices.Contains(opts.Fields, f) {
				args = append(args, "--output-fields="+f)
			}
		}
	}

	return args, nil
}
