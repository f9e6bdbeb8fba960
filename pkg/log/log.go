package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLog builds the process-wide console logger. Callers are expected to
// install it with zap.ReplaceGlobals so packages can use zap.S().Named(...).
func InitLog(lvl zap.AtomicLevel) *zap.Logger {
	loggerCfg := &zap.Config{
		Level:    lvl,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder, EncodeCaller: zapcore.ShortCallerEncoder},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	plain, err := loggerCfg.Build(zap.AddStacktrace(zap.DPanicLevel))
	if err != nil {
		panic(err)
	}

	return plain
}

// AtomicLevelFromString parses a level name ("debug", "info", ...) falling
// back to info on anything unrecognized.
func AtomicLevelFromString(level string) zap.AtomicLevel {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	return zap.NewAtomicLevelAt(lvl)
}
