package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/setevik/journalstream/internal/journal"
)

// renderFunc writes one record to the output.
type renderFunc func(journal.Record) error

func newRenderer(format string, w io.Writer) (renderFunc, error) {
	switch format {
	case "short", "":
		return func(rec journal.Record) error {
			_, err := fmt.Fprintln(w, formatShort(rec))
			return err
		}, nil

	case "json":
		enc := json.NewEncoder(w)
		return func(rec journal.Record) error {
			return enc.Encode(rec)
		}, nil

	case "yaml":
		return func(rec journal.Record) error {
			data, err := yaml.Marshal(map[string]string(rec))
			if err != nil {
				return fmt.Errorf("encoding record: %w", err)
			}
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}, nil

	default:
		return nil, fmt.Errorf("unknown output format %q (want short, json or yaml)", format)
	}
}

// formatShort renders a record like journalctl's short-iso output:
// "2006-01-02T15:04:05-0700 host ident[pid]: message".
func formatShort(rec journal.Record) string {
	ts := "-"
	if t, err := rec.Time(); err == nil {
		ts = t.Local().Format("2006-01-02T15:04:05-0700")
	}

	host := rec.Hostname()
	if host == "" {
		host = "-"
	}

	ident := rec.Identifier()
	if ident == "" {
		ident = "-"
	}
	if pid := rec["_PID"]; pid != "" {
		ident += "[" + pid + "]"
	}

	return fmt.Sprintf("%s %s %s: %s", ts, host, ident, rec.Message())
}
