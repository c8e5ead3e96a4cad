package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/setevik/journalstream/internal/config"
	"github.com/setevik/journalstream/internal/journal"
)

// streamFlags are the journalctl options accepted on the command line.
// A flag only overrides the config file when it was set explicitly.
type streamFlags struct {
	all        bool
	lines      int
	since      string
	until      string
	identifier string
	unit       string
	priority   string
	matches    []string
	fields     []string
	executable string
}

func (f *streamFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.all, "all", false, "show all fields in full")
	fs.IntVarP(&f.lines, "lines", "n", 0, "number of records to show")
	fs.StringVar(&f.since, "since", "", "show records since date (YYYY-MM-DD[ HH:MM[:SS]])")
	fs.StringVar(&f.until, "until", "", "show records until date; disables follow")
	fs.StringVarP(&f.identifier, "identifier", "t", "", "filter on SYSLOG_IDENTIFIER")
	fs.StringVarP(&f.unit, "unit", "u", "", "filter on a systemd unit")
	fs.StringVarP(&f.priority, "priority", "p", "", "priority level or range (e.g. err, 0..3)")
	fs.StringArrayVar(&f.matches, "match", nil, "FIELD=value filter (repeatable)")
	fs.StringArrayVar(&f.fields, "field", nil, "output field (repeatable)")
	fs.StringVar(&f.executable, "executable", "", "journalctl binary to run")
}

// options merges the config file's [journal] section with the flags.
func (f *streamFlags) options(cmd *cobra.Command, cfg *config.Config) (journal.Options, error) {
	opts, err := cfg.Options()
	if err != nil {
		return journal.Options{}, err
	}

	changed := cmd.Flags().Changed
	if changed("all") {
		opts.All = f.all
	}
	if changed("lines") {
		opts.Lines = journal.IntPtr(f.lines)
	}
	if changed("since") {
		opts.Since = f.since
	}
	if changed("until") {
		opts.Until = f.until
	}
	if changed("identifier") {
		opts.Identifier = f.identifier
	}
	if changed("unit") {
		opts.Unit = f.unit
	}
	if changed("priority") {
		p, err := journal.ParsePriority(f.priority)
		if err != nil {
			return journal.Options{}, err
		}
		opts.Priority = p
	}
	if changed("match") {
		opts.Matches = nil
		for _, s := range f.matches {
			m, err := journal.ParseMatch(s)
			if err != nil {
				return journal.Options{}, err
			}
			opts.Matches = append(opts.Matches, m)
		}
	}
	if changed("field") {
		opts.Fields = append([]string(nil), f.fields...)
	}
	if changed("executable") {
		opts.Executable = f.executable
	}

	return opts, nil
}

func newArgsCmd(g *globalFlags) *cobra.Command {
	f := &streamFlags{}

	cmd := &cobra.Command{
		Use:   "args",
		Short: "Print the journalctl command line without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts, err := f.options(cmd, cfg)
			if err != nil {
				return err
			}
			args, err := journal.BuildArgs(opts)
			if err != nil {
				return err
			}

			exe := opts.Executable
			if exe == "" {
				exe = journal.DefaultExecutable
			}
			fmt.Fprintln(cmd.OutOrStdout(), shellJoin(append([]string{exe}, args...)))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// shellJoin quotes arguments that would otherwise be split by a shell.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
			quoted[i] = strconv.Quote(a)
			continue
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
