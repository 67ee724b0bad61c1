// Package logging builds the process-wide zap logger.
package logging

import (
    "os"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a logger at level ("debug", "info", "warn", "error"; info
// otherwise). format "console" gives human-readable output, anything else
// JSON on stdout.
func New(level, format, service string) (*zap.Logger, error) {
    var lvl zapcore.Level
    switch level {
    case "debug":
        lvl = zapcore.DebugLevel
    case "warn":
        lvl = zapcore.WarnLevel
    case "error":
        lvl = zapcore.ErrorLevel
    default:
        lvl = zapcore.InfoLevel
    }

    var cfg zap.Config
    if format == "console" {
        cfg = zap.NewDevelopmentConfig()
    } else {
        cfg = zap.NewProductionConfig()
        cfg.EncoderConfig.TimeKey = "timestamp"
        cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
        cfg.OutputPaths = []string{"stdout"}
        cfg.ErrorOutputPaths = []string{"stderr"}
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)

    log, err := cfg.Build()
    if err != nil {
        return nil, err
    }
    if service != "" {
        log = log.With(zap.String("service", service))
    }
    if host, err := os.Hostname(); err == nil && host != "" {
        log = log.With(zap.String("hostname", host))
    }
    return log, nil
}
