// Package logger configures structured logging for the whole service.
// Every component receives a named *zap.SugaredLogger so log lines carry
// a stable "component" field.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names used across the codebase.
const (
	FieldComponent  = "component"
	FieldCollection = "collection"
	FieldIdentityID = "identity_id"
	FieldRecordID   = "record_id"
	FieldPath       = "path"
	FieldAttempt    = "attempt"
	FieldError      = "error"
)

// New creates the root logger. Output format and level come from the
// LOG_FORMAT ("json" or "console", default console) and LOG_LEVEL
// (debug/info/warn/error, default info) environment variables.
func New() *zap.SugaredLogger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}

// Named returns a child logger tagged with a component field.
func Named(log *zap.SugaredLogger, component string) *zap.SugaredLogger {
	return log.With(FieldComponent, component)
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
