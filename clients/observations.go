package clients

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/signlearn/gesture-session/segment"
)

const maxLine = 1 << 20

// ObservationReader decodes recorded recognizer output, one JSON object per
// line: {"label":"Hello","score":0.93,"ts":"2024-05-01T10:00:00.123Z"}.
type ObservationReader struct {
	sc   *bufio.Scanner
	line int
}

func NewObservationReader(r io.Reader) *ObservationReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &ObservationReader{sc: sc}
}

// Next returns io.EOF once the input is exhausted. Blank lines are skipped;
// a line without a timestamp is an error.
func (r *ObservationReader) Next() (segment.Observation, error) {
	for r.sc.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var o segment.Observation
		if err := json.Unmarshal(raw, &o); err != nil {
			return segment.Observation{}, fmt.Errorf("observation line %d: %w", r.line, err)
		}
		if o.At.IsZero() {
			return segment.Observation{}, fmt.Errorf("observation line %d: missing ts", r.line)
		}
		return o, nil
	}
	if err := r.sc.Err(); err != nil {
		return segment.Observation{}, fmt.Errorf("read observations: %w", err)
	}
	return segment.Observation{}, io.EOF
}

// ReadObservations drains r.
func ReadObservations(r io.Reader) ([]segment.Observation, error) {
	or := NewObservationReader(r)
	var out []segment.Observation
	for {
		o, err := or.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
}
