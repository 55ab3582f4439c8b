// Package summary turns a ranked session result into the record handed to
// persistence.
package summary

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signlearn/gesture-session/rank"
)

var ErrValidation = errors.New("validation failed")

// ValidationError reports a Meta that cannot be turned into a summary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type Meta struct {
	SubjectID   string
	SubjectName string
	StartedAt   time.Time
	EndedAt     time.Time
}

type Summary struct {
	ID             string       `json:"id" yaml:"id"`
	SubjectID      string       `json:"subject_id" yaml:"subject_id"`
	SubjectName    string       `json:"subject_name" yaml:"subject_name"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
	ElapsedSeconds float64      `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	TopEntries     []rank.Entry `json:"top_entries" yaml:"top_entries"`
}

// Empty reports whether nothing was recognized during the session.
func (s Summary) Empty() bool { return len(s.TopEntries) == 0 }

type Builder struct {
	// NewID generates summary identifiers; nil means random UUIDs.
	NewID func() string
}

// Build uses random UUIDs for identifiers.
func Build(entries []rank.Entry, meta Meta) (Summary, error) {
	return Builder{}.Build(entries, meta)
}

func (b Builder) Build(entries []rank.Entry, meta Meta) (Summary, error) {
	subject := strings.TrimSpace(meta.SubjectID)
	if subject == "" {
		return Summary{}, &ValidationError{Field: "subject_id", Reason: "is required"}
	}

	top := make([]rank.Entry, len(entries))
	copy(top, entries)

	newID := b.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return Summary{
		ID:             newID(),
		SubjectID:      subject,
		SubjectName:    strings.TrimSpace(meta.SubjectName),
		CreatedAt:      meta.EndedAt,
		ElapsedSeconds: Elapsed(meta.StartedAt, meta.EndedAt),
		TopEntries:     top,
	}, nil
}

// Elapsed is end-start in seconds to two decimals, clamped at zero.
func Elapsed(start, end time.Time) float64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return math.Round(d.Seconds()*100) / 100
}
