package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/setevik/journalstream/internal/session"
	"github.com/setevik/journalstream/internal/store"
)

func newSessionsCmd(g *globalFlags) *cobra.Command {
	var (
		limit    int
		outcome  string
		instance string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List past tail sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("opening session database: %w", err)
			}
			defer db.Close()

			sessions, err := db.Query(store.QueryFilter{
				InstanceID: instance,
				Outcome:    session.Outcome(outcome),
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			total, _ := db.Count()
			printSessions(cmd, sessions, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max sessions to show")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (running, clean, failed)")
	cmd.Flags().StringVar(&instance, "instance", "", "filter by instance ID")

	return cmd
}

func printSessions(cmd *cobra.Command, sessions []*session.Session, total int) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tDURATION\tRECORDS\tSTATUS\tERROR")
	for _, s := range sessions {
		errLine, _, _ := strings.Cut(s.Error, "\n")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(s.ID),
			humanize.Time(s.StartedAt),
			s.Duration().Truncate(time.Second),
			humanize.Comma(int64(s.Records)),
			s.Outcome.Label(),
			errLine,
		)
	}
	tw.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %s session(s)\n", len(sessions), humanize.Comma(int64(total)))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
