package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LevelEnv overrides the configured level.
const LevelEnv = "MESSAGEROOMS_LOG_LEVEL"

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	current   Config

	// All loggers share one handle for the configured log file.
	sinkMu   sync.Mutex
	sink     *os.File
	sinkPath string
)

// Configure sets the configuration used by loggers created afterwards and
// re-applies it to the ones already handed out.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	current = cfg

	var stale []*os.File
	for _, entry := range loggers {
		if f := setup(entry.Logger, cfg, os.Stderr); f != nil {
			stale = append(stale, f)
		}
	}
	if cfg.File == "" {
		if f := dropLogFile(); f != nil {
			stale = append(stale, f)
		}
	}
	// Nothing writes to a replaced file once every logger is re-applied.
	for _, f := range stale {
		_ = f.Close()
	}
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	if stale := setup(logger, current, os.Stderr); stale != nil {
		_ = stale.Close()
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// setup applies cfg to logger. When cfg names a different log file than the
// one in use, the replaced file is returned for the caller to close.
func setup(logger *logrus.Logger, cfg Config, stderr *os.File) (stale *os.File) {
	levelStr := "info"
	if env := os.Getenv(LevelEnv); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetReportCaller(cfg.ReportCaller)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&TextFormatter{})
	}

	var writers []io.Writer
	if cfg.File != "" {
		f, old, err := logFile(cfg.File)
		if err == nil {
			writers = append(writers, f)
			stale = old
		} else {
			logger.Warnf("Failed to open log file %s: %v", cfg.File, err)
		}
	}

	interactive := isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())
	if toStderr(cfg.Stderr, level, interactive) {
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return stale
}

func toStderr(mode string, level logrus.Level, interactive bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return level >= logrus.DebugLevel || !interactive
	}
}

// logFile returns the shared handle for path, opening it on first use. A
// handle for a previous path is returned as old.
func logFile(path string) (f, old *os.File, err error) {
	path = expandPath(path)
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink != nil && sinkPath == path {
		return sink, nil, nil
	}
	f, err = openLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	old, sink, sinkPath = sink, f, path
	return f, old, nil
}

func dropLogFile() *os.File {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	old := sink
	sink, sinkPath = nil, ""
	return old
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
