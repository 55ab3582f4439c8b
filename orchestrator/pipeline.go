package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	cfg "github.com/signlearn/gesture-session/config"
	"github.com/signlearn/gesture-session/metrics"
	"github.com/signlearn/gesture-session/segment"
)

type Pipeline struct {
	cfg   *cfg.Root
	log   *logrus.Logger
	sinks []Sink
	now   func() time.Time
}

func NewPipeline(c *cfg.Root, log *logrus.Logger, sinks ...Sink) *Pipeline {
	return &Pipeline{cfg: c, log: log, sinks: sinks, now: time.Now}
}

func (p *Pipeline) session() *Session {
	return NewSession(SessionOptions{
		TopK: p.cfg.Session.TopK,
		Segment: segment.Options{
			MinScore: p.cfg.Session.MinScore,
			Ignore:   p.cfg.Session.Ignore,
		},
	})
}

// Run replays src through one session and hands the summary to every sink.
// A canceled ctx abandons the session without dispatching anything. The
// summary is returned even when a sink fails.
func (p *Pipeline) Run(ctx context.Context, src Source, opts RunOptions) (Result, error) {
	sess := p.session()
	var last time.Time
	ticks := 0

	for {
		o, err := next(ctx, src)
		if errors.Is(err, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			sess.Cancel()
			metrics.SessionDone("cancelled", 0, 0)
			p.log.WithField("ticks", ticks).Warn("session cancelled")
			return Result{}, ctxErr
		}
		if err == nil && o.At.IsZero() {
			err = fmt.Errorf("tick %d: %w", ticks+1, ErrNoTimestamp)
		}
		if err != nil {
			sess.Cancel()
			metrics.SessionDone("failed", 0, 0)
			return Result{}, err
		}

		if sess.State() == Idle {
			start := opts.StartedAt
			if start.IsZero() {
				start = o.At
			}
			if err := sess.Start(start); err != nil {
				return Result{}, err
			}
		}
		accepted, err := sess.Observe(o)
		if err != nil {
			return Result{}, err
		}
		metrics.ObserveTick(accepted)
		last = o.At
		ticks++
	}

	end := opts.EndedAt
	if end.IsZero() {
		end = last
	}
	if sess.State() == Idle {
		// nothing was observed at all
		start := opts.StartedAt
		if start.IsZero() {
			start = p.now()
		}
		if end.IsZero() {
			end = start
		}
		if err := sess.Start(start); err != nil {
			return Result{}, err
		}
	}

	res, err := sess.Stop(opts.Subject, end)
	if err != nil {
		sess.Cancel()
		metrics.SessionDone("failed", 0, 0)
		return Result{}, fmt.Errorf("summarize session: %w", err)
	}

	fields := logrus.Fields{
		"summary_id": res.Summary.ID,
		"subject_id": res.Summary.SubjectID,
		"ticks":      ticks,
		"runs":       len(res.Runs),
		"elapsed":    res.Summary.ElapsedSeconds,
	}

	if res.Summary.Empty() && !p.cfg.Session.PersistEmpty {
		metrics.SessionDone("skipped_empty", 0, res.Summary.ElapsedSeconds)
		p.log.WithFields(fields).Info("no gestures detected, summary not persisted")
		return res, nil
	}

	if err := p.dispatch(ctx, res); err != nil {
		metrics.SessionDone("failed", len(res.Runs), res.Summary.ElapsedSeconds)
		return res, err
	}
	metrics.SessionDone("persisted", len(res.Runs), res.Summary.ElapsedSeconds)
	p.log.WithFields(fields).Info("session summary persisted")
	return res, nil
}

type tick struct {
	o   segment.Observation
	err error
}

// next waits for src.Next unless ctx is done first. An abandoned read keeps
// running in the background until the source returns.
func next(ctx context.Context, src Source) (segment.Observation, error) {
	if err := ctx.Err(); err != nil {
		return segment.Observation{}, err
	}
	ch := make(chan tick, 1)
	go func() {
		o, err := src.Next()
		ch <- tick{o, err}
	}()
	select {
	case t := <-ch:
		return t.o, t.err
	case <-ctx.Done():
		return segment.Observation{}, ctx.Err()
	}
}
