package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/signlearn/gesture-session/segment"
	"github.com/signlearn/gesture-session/summary"
)

var (
	ErrNotActive     = errors.New("session not active")
	ErrAlreadyActive = errors.New("session already active")
	ErrNoTimestamp   = errors.New("observation has no timestamp")
)

type State int

const (
	Idle State = iota
	Active
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Finalizing:
		return "finalizing"
	}
	return "unknown"
}

// Sink receives one summary per completed session. Implementations own any
// retry policy.
type Sink interface {
	Name() string
	Send(ctx context.Context, s summary.Summary) error
}

// Source yields recognizer ticks in time order and io.EOF when done. Next may
// block; a Pipeline stops waiting on it once its context is done.
type Source interface {
	Next() (segment.Observation, error)
}

type Subject struct {
	ID   string
	Name string
}

// Result is what a finished session produced.
type Result struct {
	Summary summary.Summary
	Runs    []segment.Run
}

// RunOptions describe one pipeline run. Zero StartedAt/EndedAt fall back to
// the first/last observation timestamps.
type RunOptions struct {
	Subject   Subject
	StartedAt time.Time
	EndedAt   time.Time
}
