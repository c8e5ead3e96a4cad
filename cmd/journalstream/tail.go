package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/setevik/journalstream/internal/config"
	"github.com/setevik/journalstream/internal/journal"
	"github.com/setevik/journalstream/internal/metrics"
	"github.com/setevik/journalstream/internal/session"
	"github.com/setevik/journalstream/internal/store"
)

type tailFlags struct {
	stream      streamFlags
	output      string
	pull        bool
	resume      bool
	checkpoint  string
	metricsAddr string
}

func newTailCmd(g *globalFlags) *cobra.Command {
	f := &tailFlags{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Run journalctl and print decoded records",
		Long: "tail follows the journal (or reads a bounded range when --until is set) and prints every record. " +
			"SIGINT and SIGTERM stop journalctl and end the stream cleanly.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = f.metricsAddr
			}
			return runTail(cmd, cfg, f)
		},
	}

	f.stream.register(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "short", "output format (short, json, yaml)")
	fs.BoolVar(&f.pull, "pull", false, "consume records through the pull sequence, stopping at the first error, and report the count")
	fs.BoolVar(&f.resume, "resume", false, "continue after the last saved cursor")
	fs.StringVar(&f.checkpoint, "checkpoint", "default", "name of the saved cursor")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runTail(cmd *cobra.Command, cfg *config.Config, f *tailFlags) error {
	opts, err := f.stream.options(cmd, cfg)
	if err != nil {
		return err
	}

	render, err := newRenderer(f.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	db := openStore(cfg)
	if db != nil {
		defer db.Close()
	}

	if f.resume {
		if db == nil {
			return errors.New("--resume needs the session database")
		}
		cp, ok, err := db.LastCursor(f.checkpoint)
		if err != nil {
			return err
		}
		if ok {
			opts.AfterCursor = cp.Cursor
			slog.Info("resuming after saved cursor", "checkpoint", f.checkpoint, "saved", cp.UpdatedAt)
		} else {
			slog.Info("no saved cursor, starting fresh", "checkpoint", f.checkpoint)
		}
	}

	stream, err := journal.New(opts)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.Observe(stream)

	sess := session.New(cfg.Instance.ID, time.Now(), stream)
	sess.Track(stream)
	if db != nil {
		if err := db.Insert(sess); err != nil {
			slog.Error("failed to store session", "error", err)
		}
	}

	stream.OnError(func(err error) {
		var decodeErr *journal.DecodeError
		if errors.As(err, &decodeErr) {
			slog.Warn("skipping undecodable journal line", "error", err)
		}
	})

	var seq *journal.Sequence
	if f.pull {
		if seq, err = stream.Records(); err != nil {
			return err
		}
	} else {
		stream.OnMessage(func(rec journal.Record) {
			if err := render(rec); err != nil {
				slog.Debug("writing record failed, stopping", "error", err)
				stream.Stop()
			}
		})
	}

	g, gctx := errgroup.WithContext(cmd.Context())

	if err := stream.Start(gctx); err != nil {
		finishSession(db, sess, f.checkpoint, err)
		return err
	}
	notify(daemon.SdNotifyReady)

	g.Go(func() error {
		if seq == nil {
			return stream.Wait()
		}
		for rec := range seq.All(gctx) {
			if err := render(rec); err != nil {
				stream.Stop()
				return fmt.Errorf("writing record: %w", err)
			}
		}
		// The sequence also ends on the first error signal, possibly while
		// journalctl is still following.
		stream.Stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s record(s)\n", humanize.Comma(int64(seq.Count())))
		return stream.Wait()
	})

	g.Go(func() error {
		watchSignals(stream)
		return nil
	})

	if addr := cfg.Metrics.Addr; addr != "" {
		serveMetrics(gctx, g, addr, m, stream)
	}

	err = g.Wait()
	finishSession(db, sess, f.checkpoint, stream.Wait())
	return err
}

// watchSignals stops the stream on SIGINT/SIGTERM and pings the systemd
// watchdog until the stream is done.
func watchSignals(stream *journal.Stream) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Watchdog channel (nil if disabled, select skips nil channels).
	var watchdogCh <-chan time.Time
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		// Ping at half the watchdog interval.
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		watchdogCh = ticker.C
		slog.Info("systemd watchdog enabled", "interval", interval)
	}

	for {
		select {
		case <-stream.Done():
			return
		case <-watchdogCh:
			notify(daemon.SdNotifyWatchdog)
		case sig := <-sigCh:
			slog.Info("received signal, stopping stream", "signal", sig)
			notify(daemon.SdNotifyStopping)
			stream.Stop()
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, m *metrics.Metrics, stream *journal.Stream) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-stream.Done():
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// openStore opens the session database. Session history is optional, so a
// failure only disables it.
func openStore(cfg *config.Config) *store.DB {
	path := cfg.DBPath()
	db, err := store.Open(path)
	if err != nil {
		slog.Warn("session history disabled", "path", path, "error", err)
		return nil
	}
	slog.Debug("session database opened", "path", path)

	if retention := cfg.Store.Retention.Duration; retention > 0 {
		purged, err := db.Purge(retention)
		if err != nil {
			slog.Warn("failed to purge old sessions", "error", err)
		} else if purged > 0 {
			slog.Info("purged old sessions", "count", purged, "retention", retention)
		}
	}
	return db
}

func finishSession(db *store.DB, sess *session.Session, checkpoint string, err error) {
	sess.Finish(time.Now(), err)
	snap := sess.Snapshot()

	slog.Info("stream finished",
		"session", snap.ID,
		"records", snap.Records,
		"decode_errors", snap.DecodeErrors,
		"outcome", snap.Outcome,
	)

	if db == nil {
		return
	}
	if err := db.Update(sess); err != nil {
		slog.Error("failed to update session", "error", err)
	}
	if err := db.SaveCursor(checkpoint, snap.LastCursor, snap.EndedAt); err != nil {
		slog.Error("failed to save cursor", "checkpoint", checkpoint, "error", err)
	}
}

// notify sends a state notification to systemd. It is a no-op outside a
// systemd service.
func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Debug("sd_notify failed", "state", state, "error", err)
	}
}
