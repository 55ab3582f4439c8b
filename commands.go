package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signlearn/gesture-session/clients"
	cfg "github.com/signlearn/gesture-session/config"
	"github.com/signlearn/gesture-session/metrics"
	"github.com/signlearn/gesture-session/orchestrator"
)

type app struct {
	log        *logrus.Logger
	configPath string
	conf       *cfg.Root
}

func newRootCmd(log *logrus.Logger) *cobra.Command {
	a := &app{log: log}
	root := &cobra.Command{
		Use:           "gesture-session",
		Short:         "Summarize recorded gesture recognition sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			c, err := cfg.Load(a.configPath)
			if err != nil {
				return err
			}
			a.conf = c
			configureLogger(a.log, c)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	root.AddCommand(a.runCmd(), a.historyCmd(), versionCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	var (
		input, subjectID, subjectName string
		startedAt, endedAt            string
		metricsAddr                   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reduce a JSON Lines observation stream into a session summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := orchestrator.RunOptions{Subject: orchestrator.Subject{ID: subjectID, Name: subjectName}}
			var err error
			if opts.StartedAt, err = parseTime(startedAt); err != nil {
				return fmt.Errorf("--started-at: %w", err)
			}
			if opts.EndedAt, err = parseTime(endedAt); err != nil {
				return fmt.Errorf("--ended-at: %w", err)
			}

			in, closeIn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeIn()

			metrics.Init(a.log)
			if metricsAddr != "" {
				srv := a.serveMetrics(metricsAddr)
				defer srv.Close()
			}

			sinks, closeSinks, err := buildSinks(a.conf, a.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeSinks(); err != nil {
					a.log.WithError(err).Warn("closing sinks")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := orchestrator.NewPipeline(a.conf, a.log, sinks...)
			res, runErr := p.Run(ctx, clients.NewObservationReader(in), opts)
			if res.Summary.ID != "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res.Summary); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "-", "observation file, - for stdin")
	f.StringVar(&subjectID, "subject-id", "", "identity the summary is attributed to")
	f.StringVar(&subjectName, "subject-name", "", "display name of the subject")
	f.StringVar(&startedAt, "started-at", "", "session start (RFC 3339), defaults to the first observation")
	f.StringVar(&endedAt, "ended-at", "", "session end (RFC 3339), defaults to the last observation")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		subjectID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored summaries for a subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.conf.Sinks.SQLite.Path == "" {
				return fmt.Errorf("%w: sinks.sqlite.path is not set", cfg.ErrInvalid)
			}
			store, err := clients.OpenSQLite(a.conf.Sinks.SQLite.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			hist, err := store.History(cmd.Context(), subjectID, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range hist {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subjectID, "subject-id", "", "subject to list")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of summaries, 0 for all")
	_ = cmd.MarkFlagRequired("subject-id")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// buildSinks wires every configured collaborator. The returned func closes
// whatever holds a connection.
func buildSinks(c *cfg.Root, log *logrus.Logger) ([]orchestrator.Sink, func() error, error) {
	var (
		sinks   []orchestrator.Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	if c.Sinks.File.Enabled {
		sinks = append(sinks, orchestrator.NewFileSink(c.Paths.Outputs, c.Sinks.File.Format))
	}
	if c.Sinks.HTTP.URL != "" {
		h := clients.NewHTTP(cfg.DurSeconds(c.Sinks.HTTP.Timeout))
		sinks = append(sinks, clients.NewHTTPSink(h, c.Sinks.HTTP.URL))
	}
	if c.Sinks.SQLite.Path != "" {
		store, err := clients.OpenSQLite(c.Sinks.SQLite.Path)
		if err != nil {
			return nil, nil, errors.Join(err, closeAll())
		}
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
	}
	if c.Sinks.AMQP.URL != "" {
		q := clients.NewAMQPSink(log, clients.AMQPConfig{URL: c.Sinks.AMQP.URL, Queue: c.Sinks.AMQP.Queue})
		if err := q.Connect(); err != nil {
			return nil, nil, errors.Join(err, closeAll())
		}
		sinks = append(sinks, q)
		closers = append(closers, q.Close)
	}
	return sinks, closeAll, nil
}

func (a *app) serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server stopped")
		}
	}()
	a.log.WithField("addr", addr).Info("serving metrics")
	return srv
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
