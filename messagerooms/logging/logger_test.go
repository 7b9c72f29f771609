package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms"
)

var _ messagerooms.Logger = (*SDKLogger)(nil)

func TestNewLoggerCachesPerComponent(t *testing.T) {
	a := NewLogger("test-component")
	require.NotNil(t, a)
	assert.Equal(t, "test-component", a.Data["component"])
	assert.Same(t, a, NewLogger("test-component"))
	assert.NotSame(t, a, NewLogger("other-component"))
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(LevelEnv, "debug")
	logger := logrus.New()
	setup(logger, Config{Level: "error", Stderr: "never"}, os.Stderr)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	t.Setenv(LevelEnv, "")
	setup(logger, Config{Level: "error", Stderr: "never"}, os.Stderr)
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())

	setup(logger, Config{Level: "bogus", Stderr: "never"}, os.Stderr)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestStderrMode(t *testing.T) {
	assert.True(t, toStderr("always", logrus.InfoLevel, true))
	assert.False(t, toStderr("never", logrus.DebugLevel, false))
	assert.False(t, toStderr("auto", logrus.InfoLevel, true))
	assert.True(t, toStderr("", logrus.InfoLevel, false))
	assert.True(t, toStderr("auto", logrus.DebugLevel, true))
}

func TestFileSink(t *testing.T) {
	t.Setenv(LevelEnv, "")
	path := filepath.Join(t.TempDir(), "logs", "roomchat.log")
	t.Cleanup(closeLogFile)
	logger := logrus.New()
	setup(logger, Config{Format: "json", File: path, Stderr: "never"}, os.Stderr)

	logger.WithField("component", "sse").Info("connection open")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"connection open"`)
	assert.Contains(t, string(data), `"component":"sse"`)
}

func closeLogFile() {
	if f := dropLogFile(); f != nil {
		_ = f.Close()
	}
}

func TestFileSinkShared(t *testing.T) {
	t.Setenv(LevelEnv, "")
	t.Cleanup(closeLogFile)
	dir := t.TempDir()
	first := Config{File: filepath.Join(dir, "a.log"), Stderr: "never"}

	a, b := logrus.New(), logrus.New()
	setup(a, first, os.Stderr)
	assert.Nil(t, setup(b, first, os.Stderr))
	assert.Same(t, a.Out, b.Out)

	stale := setup(a, Config{File: filepath.Join(dir, "b.log"), Stderr: "never"}, os.Stderr)
	require.NotNil(t, stale)
	assert.Same(t, b.Out, stale)
	require.NoError(t, stale.Close())
}

func TestConfigureReusesLogFile(t *testing.T) {
	t.Setenv(LevelEnv, "")
	t.Cleanup(func() { Configure(Config{Stderr: "never"}) })
	path := filepath.Join(t.TempDir(), "roomchat.log")
	cfg := Config{File: path, Stderr: "never"}

	entry := NewLogger("configure-test")
	Configure(cfg)
	out := entry.Logger.Out
	Configure(cfg)
	assert.Same(t, out, entry.Logger.Out)

	entry.Info("still open")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "still open")

	Configure(Config{Stderr: "never"})
	f, ok := out.(*os.File)
	require.True(t, ok)
	_, err = f.Write([]byte("x"))
	assert.Error(t, err, "replaced log file should be closed")
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{DisableTimestamp: true})

	logger.WithFields(logrus.Fields{"component": "dispatcher", "event": "Heartbeat", "bytes": 2}).Warn("event dropped")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[WARN]"), out)
	assert.Contains(t, out, "dispatcher")
	assert.Contains(t, out, "event dropped bytes=2 event=Heartbeat\n")
}

func TestAdapt(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&TextFormatter{DisableTimestamp: true})

	l := Adapt(logger.WithField("component", "client"))
	l.Debug("event handled", map[string]any{"event": "ClientConnection"})
	l.Info("connection open", nil)
	l.Error("connection failed", map[string]any{"error": "refused"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[DEBUG]")
	assert.Contains(t, lines[0], "event=ClientConnection")
	assert.Contains(t, lines[1], "connection open")
	assert.Contains(t, lines[2], "error=refused")
}
