package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the application-wide logger. Handlers and stores only need
// Printf/Errorf; the underlying slog.Logger is exposed for libraries that
// accept one.
type Logger struct {
	l *slog.Logger
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{l: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.Errorf(format, args...)
	os.Exit(1)
}

func (l *Logger) Slog() *slog.Logger {
	if l == nil || l.l == nil {
		return slog.Default()
	}
	return l.l
}
