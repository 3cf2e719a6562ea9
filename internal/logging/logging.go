// Package logging builds the process logger. Diagnostics go to stderr so
// they never interleave with the MD log on stdout.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger at info level, or a colored
// development logger at debug level when verbose is set.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Must is New for main packages.
func Must(verbose bool) *zap.Logger {
	l, err := New(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
