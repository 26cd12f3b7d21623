// Package gdslog provides structured logging for the gdsc toolchain
// using zap, configured once by the CLI and injected into the batch
// driver rather than referenced as a hidden package-level global from
// the core codec packages.
//
// Grounded on the teacher pack's internal/log/logger.go
// (zboralski-galago), which wraps *zap.Logger the same way: a
// development config with colorized levels for verbose runs, a
// production config for quiet ones.
package gdslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gdsc/pkg/gdserr"
)

// Logger wraps a *zap.Logger with the diagnostic helpers the codec's
// warning sink needs.
type Logger struct {
	*zap.Logger
}

// New builds a Logger. verbose selects a development config with
// colorized level output; otherwise a production config at warn level
// is used so routine progress doesn't compete with the progress bar.
func New(verbose bool) *Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything, for library use and
// tests.
func Nop() *Logger { return &Logger{Logger: zap.NewNop()} }

// Warning logs one diagnostic warning (PatchWarning/RangeWarning) at
// warn level with structured fields.
func (l *Logger) Warning(kind, msg string) {
	l.Warn(msg, zap.String("kind", kind))
}

// Sink adapts l into a gdserr.Diagnostics callback, the shape every
// core Read/Write/Parse entry point accepts for non-fatal warnings.
func (l *Logger) Sink() gdserr.Diagnostics {
	return func(w gdserr.Warning) {
		l.Warning(w.Kind.String(), w.Msg)
	}
}
