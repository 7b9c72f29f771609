package logging

import "github.com/sirupsen/logrus"

// SDKLogger forwards messagerooms.Logger calls to a logrus entry.
type SDKLogger struct {
	entry *logrus.Entry
}

// Adapt wraps entry so it can be passed to Client.SetLogger.
func Adapt(entry *logrus.Entry) *SDKLogger {
	return &SDKLogger{entry: entry}
}

func (l *SDKLogger) Debug(msg string, fields map[string]any) {
	l.with(fields).Debug(msg)
}

func (l *SDKLogger) Info(msg string, fields map[string]any) {
	l.with(fields).Info(msg)
}

func (l *SDKLogger) Warn(msg string, fields map[string]any) {
	l.with(fields).Warn(msg)
}

func (l *SDKLogger) Error(msg string, fields map[string]any) {
	l.with(fields).Error(msg)
}

func (l *SDKLogger) with(fields map[string]any) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(fields))
}
