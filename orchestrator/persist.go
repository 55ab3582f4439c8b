package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/signlearn/gesture-session/summary"
)

// FileSink writes each summary to <root>/session_<id>/summary.<format>.
type FileSink struct {
	root   string
	format string
}

func NewFileSink(outputsRoot, format string) *FileSink {
	if format == "" {
		format = "json"
	}
	return &FileSink{root: outputsRoot, format: format}
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Send(ctx context.Context, s summary.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := mkSessionDir(f.root, s.ID)
	if err != nil {
		return err
	}
	path := f.Path(s.ID)
	switch f.format {
	case "yaml":
		err = writeYAML(path, s)
	default:
		err = writeJSON(path, s)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dir, err)
	}
	return nil
}

// Path is where the summary with the given id ends up.
func (f *FileSink) Path(id string) string {
	return filepath.Join(f.root, "session_"+id, "summary."+f.format)
}

func mkSessionDir(outputsRoot, id string) (string, error) {
	dir := filepath.Join(outputsRoot, "session_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
