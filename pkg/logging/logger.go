// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logging provides the structured logger used by the signing backends
// and the outer CLI/REST layers.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Config controls the logger output.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Format is text or json. Defaults to text.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger wraps slog with the printf-style helpers used throughout the module.
// A logger and every child created with With share one level, so SetLevel
// takes effect for all of them.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewLogger creates a new logger instance
func NewLogger(debug bool) *Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	return New(&Config{Level: level})
}

// New creates a logger from cfg. A nil cfg yields the default logger.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		level:  level,
	}
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger: l.logger.With(args...),
		level:  l.level,
	}
}

// SetLevel changes the level of this logger and of every logger derived
// from it or sharing its root.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

func (l *Logger) debugEnabled() bool {
	return l.level.Level() <= slog.LevelDebug
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Infof logs a formatted informational message
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if l.debugEnabled() {
		l.logger.Debug(msg, args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	if l.debugEnabled() {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error
func (l *Logger) Error(err error) {
	l.logger.Error(err.Error())
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// FatalError logs a fatal error and exits
func (l *Logger) FatalError(err error) {
	l.logger.Error(err.Error())
	log.Fatal(err)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}

// MaybeError logs an error if it's not nil
func (l *Logger) MaybeError(err error) {
	if err != nil {
		l.logger.Error(err.Error())
	}
}

// DefaultLogger returns a default logger instance with debug=false
func DefaultLogger() *Logger {
	return NewLogger(false)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(&Config{Level: "error", Output: io.Discard})
}
