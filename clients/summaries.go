package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/signlearn/gesture-session/summary"
)

// --- Summaries (/summaries) ---

// HTTPSink posts finished session summaries to a progress-tracking service.
type HTTPSink struct {
	http *HTTP
	url  string
}

func NewHTTPSink(h *HTTP, url string) *HTTPSink {
	return &HTTPSink{http: h, url: strings.TrimRight(url, "/")}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Send(ctx context.Context, sum summary.Summary) error {
	b, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("summary encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/summaries", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.c.Do(req)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return fmt.Errorf("summary %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
