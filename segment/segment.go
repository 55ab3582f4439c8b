// Package segment collapses a per-tick stream of gesture labels into runs.
package segment

import (
	"strings"
	"time"
)

// Observation is one tick of recognizer output. An empty Label means
// nothing was recognized with confidence on that tick.
type Observation struct {
	Label string    `json:"label"`
	Score float64   `json:"score"`
	At    time.Time `json:"ts"`
}

// Run is a maximal span of consecutive ticks carrying the same label.
type Run struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Ticks int       `json:"ticks"`
}

type Options struct {
	// MinScore below which a labelled observation counts as empty. Zero disables.
	MinScore float64
	// Ignore lists labels treated as empty, e.g. the recognizer's "None" class.
	Ignore []string
}

// Segmenter is scoped to a single session and is not safe for concurrent use.
type Segmenter struct {
	opts     Options
	ignore   map[string]struct{}
	runs     []Run // last element is the open run
	observed int
}

func New(opts Options) *Segmenter {
	s := &Segmenter{opts: opts}
	if len(opts.Ignore) > 0 {
		s.ignore = make(map[string]struct{}, len(opts.Ignore))
		for _, l := range opts.Ignore {
			s.ignore[strings.TrimSpace(l)] = struct{}{}
		}
	}
	return s
}

// Observe feeds one tick. Empty ticks leave the state untouched, so they
// never split a run.
func (s *Segmenter) Observe(o Observation) {
	label := s.label(o)
	if label == "" {
		return
	}
	s.observed++
	if n := len(s.runs); n > 0 && s.runs[n-1].Label == label {
		s.runs[n-1].End = o.At
		s.runs[n-1].Ticks++
		return
	}
	s.runs = append(s.runs, Run{Label: label, Start: o.At, End: o.At, Ticks: 1})
}

func (s *Segmenter) label(o Observation) string {
	label := strings.TrimSpace(o.Label)
	if label == "" {
		return ""
	}
	if s.opts.MinScore > 0 && o.Score < s.opts.MinScore {
		return ""
	}
	if _, skip := s.ignore[label]; skip {
		return ""
	}
	return label
}

// Finalize returns the collapsed sequence in temporal order. It may be called
// any number of times; without intervening Observe calls the result is the same.
func (s *Segmenter) Finalize() []Run {
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

// Reset drops all accumulated state.
func (s *Segmenter) Reset() {
	s.runs = nil
	s.observed = 0
}

// Len is the number of runs collected so far, the open one included.
func (s *Segmenter) Len() int { return len(s.runs) }

// Observed is the number of non-empty observations accepted.
func (s *Segmenter) Observed() int { return s.observed }
