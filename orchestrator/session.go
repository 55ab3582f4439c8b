package orchestrator

import (
	"fmt"
	"time"

	"github.com/signlearn/gesture-session/rank"
	"github.com/signlearn/gesture-session/segment"
	"github.com/signlearn/gesture-session/summary"
)

type SessionOptions struct {
	TopK    int
	Segment segment.Options
	Builder summary.Builder
}

// Session drives one practice session: Idle -> Active -> Finalizing -> Idle.
// A Session has a single owner and is not safe for concurrent use.
type Session struct {
	opts      SessionOptions
	state     State
	seg       *segment.Segmenter
	startedAt time.Time
}

func NewSession(opts SessionOptions) *Session {
	if opts.TopK <= 0 {
		opts.TopK = rank.DefaultK
	}
	return &Session{opts: opts}
}

func (s *Session) State() State { return s.state }

// Start opens a session with fresh segmentation state.
func (s *Session) Start(at time.Time) error {
	if s.state != Idle {
		return fmt.Errorf("start: %w", ErrAlreadyActive)
	}
	s.seg = segment.New(s.opts.Segment)
	s.startedAt = at
	s.state = Active
	return nil
}

// Observe reports whether the tick carried a usable label.
func (s *Session) Observe(o segment.Observation) (bool, error) {
	if s.state != Active {
		return false, fmt.Errorf("observe: %w", ErrNotActive)
	}
	before := s.seg.Observed()
	s.seg.Observe(o)
	return s.seg.Observed() > before, nil
}

// Stop collapses, ranks and summarizes everything observed since Start and
// returns to Idle. If the summary cannot be built the session stays Active.
func (s *Session) Stop(subject Subject, at time.Time) (Result, error) {
	if s.state != Active {
		return Result{}, fmt.Errorf("stop: %w", ErrNotActive)
	}
	s.state = Finalizing

	runs := s.seg.Finalize()
	entries := rank.Rank(runs, s.opts.TopK)
	sum, err := s.opts.Builder.Build(entries, summary.Meta{
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		StartedAt:   s.startedAt,
		EndedAt:     at,
	})
	if err != nil {
		s.state = Active
		return Result{}, err
	}

	s.reset()
	return Result{Summary: sum, Runs: runs}, nil
}

// Cancel discards the session without producing a summary.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.seg = nil
	s.startedAt = time.Time{}
	s.state = Idle
}
