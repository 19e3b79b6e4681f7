// Package logger constructs the structured zap logger shared by all flint
// subsystems. Every component receives a *zap.SugaredLogger through its Config
// struct rather than constructing its own, so log output stays consistent and
// tests can inject a no-op logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-grade sugared logger tagged with the given service
// name. Output goes to stderr as JSON with ISO8601 timestamps.
func New(service string) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)

	return zap.New(core).Sugar().With("service", service)
}

// NewNop returns a logger that discards everything. Intended for tests and for
// embedders that bring their own logging.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
