package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "meowchi"

// log stays a no-op until Initialize so packages can log from tests.
var log = zap.NewNop()

func Initialize(logLevel string) error {
	built, err := build(logLevel, "stderr")
	if err != nil {
		return err
	}
	log = built

	return nil
}

func build(logLevel string, output string) (*zap.Logger, error) {
	zLevel, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	config := zap.Config{
		Encoding:         "json",
		Level:            zap.NewAtomicLevelAt(zLevel),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"app": appName},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "time",
			CallerKey:     "caller",
			NameKey:       "component",
			StacktraceKey: "stacktrace",
			EncodeLevel:   zapcore.LowercaseLevelEncoder,
			EncodeTime:    zapcore.ISO8601TimeEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
			EncodeName:    zapcore.FullNameEncoder,
		},
	}

	return config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func Logger() *zap.Logger {
	return log
}

// Named returns a child logger for a component, e.g. "daily_reset".
func Named(name string) *zap.Logger {
	return log.Named(name)
}

func Sync() error {
	return log.Sync()
}
