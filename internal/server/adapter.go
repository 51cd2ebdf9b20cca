package server

import "log/slog"

// SlogLogger adapts a structured slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an slog.Logger for use as the server logger.
func NewSlogLogger(logger *slog.Logger) Logger {
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

// With returns a new logger with additional context fields.
func (l *SlogLogger) With(args ...interface{}) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}
