package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signlearn/gesture-session/rank"
	"github.com/signlearn/gesture-session/summary"
)

const observations = `{"label":"Hello","score":0.95,"ts":"2024-05-01T10:00:00Z"}
{"label":"Hello","score":0.91,"ts":"2024-05-01T10:00:01Z"}
{"label":"","score":0,"ts":"2024-05-01T10:00:02Z"}
{"label":"Yes","score":0.88,"ts":"2024-05-01T10:00:03Z"}
{"label":"Hello","score":0.9,"ts":"2024-05-01T10:00:04Z"}
{"label":"None","score":0.99,"ts":"2024-05-01T10:00:05Z"}
`

func setup(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	conf := fmt.Sprintf(`
pipeline:
  log_level: debug
session:
  top_k: 5
  ignore: ["None"]
sinks:
  file:
    enabled: true
    format: json
  sqlite:
    path: %s
paths:
  outputs: %s
`, filepath.Join(dir, "sessions.db"), filepath.Join(dir, "out"))
	require.NoError(t, os.WriteFile(configPath, []byte(conf), 0o644))
	return dir, configPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cmd := newRootCmd(logger)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunAndHistory(t *testing.T) {
	dir, conf := setup(t)

	out, err := execute(t, observations, "run", "--config", conf, "--subject-id", "u-1", "--subject-name", "Ada")
	require.NoError(t, err)

	var sum summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "u-1", sum.SubjectID)
	assert.Equal(t, 5.0, sum.ElapsedSeconds)
	assert.Equal(t, []rank.Entry{{Label: "Hello", Count: 2}, {Label: "Yes", Count: 1}}, sum.TopEntries)
	assert.FileExists(t, filepath.Join(dir, "out", "session_"+sum.ID, "summary.json"))

	out, err = execute(t, "", "history", "--config", conf, "--subject-id", "u-1")
	require.NoError(t, err)
	var stored summary.Summary
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &stored))
	assert.Equal(t, sum.ID, stored.ID)
	assert.Equal(t, sum.TopEntries, stored.TopEntries)
}

func TestRunFromFileWithExplicitTimes(t *testing.T) {
	dir, conf := setup(t)
	input := filepath.Join(dir, "obs.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(observations), 0o644))

	out, err := execute(t, "", "run", "--config", conf, "-i", input, "--subject-id", "u-2",
		"--started-at", "2024-05-01T09:59:50Z", "--ended-at", "2024-05-01T10:00:20Z")
	require.NoError(t, err)

	var sum summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 30.0, sum.ElapsedSeconds)
}

func TestRunRequiresSubject(t *testing.T) {
	_, conf := setup(t)
	out, err := execute(t, observations, "run", "--config", conf)
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestRunRejectsObservationWithoutTimestamp(t *testing.T) {
	dir, conf := setup(t)
	in := "{\"label\":\"A\"}\n{\"label\":\"B\",\"ts\":\"2024-05-01T10:00:05Z\"}\n"

	out, err := execute(t, in, "run", "--config", conf, "--subject-id", "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1: missing ts")
	assert.Empty(t, out)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestRunBadTime(t *testing.T) {
	_, conf := setup(t)
	_, err := execute(t, observations, "run", "--config", conf, "--subject-id", "u-1", "--started-at", "yesterday")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestConfigureLogger(t *testing.T) {
	_, conf := setup(t)
	logger := logrus.New()
	cmd := newRootCmd(logger)
	cmd.SetArgs([]string{"history", "--config", conf, "--subject-id", "nobody"})
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
