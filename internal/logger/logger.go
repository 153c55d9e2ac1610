package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *zap.Logger

const (
	maxSize    = 50 // megabytes per file before rotation
	maxBackups = 30
	maxAge     = 28 // days
)

// SetupLogger builds the process logger. An empty logFile logs to the
// console only.
func SetupLogger(logFile, mode string) (logger *zap.Logger, err error) {
	switch mode {
	case "release":
		logger, err = newLogger(logFile, zap.NewProductionConfig(), zap.NewProductionEncoderConfig(), zap.InfoLevel)
	default:
		logger, err = newLogger(logFile, zap.NewDevelopmentConfig(), zap.NewDevelopmentEncoderConfig(), zap.DebugLevel)
	}
	if err != nil {
		return nil, err
	}
	Logger = logger.With(zap.String("mode", mode))
	return Logger, nil
}

func rotateWriteSyncer(logFile string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   true,
	})
}

func newLogger(logFile string, c zap.Config, enc zapcore.EncoderConfig, level zapcore.Level) (*zap.Logger, error) {
	c.DisableCaller = level != zap.DebugLevel
	c.DisableStacktrace = true
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	if logFile == "" {
		return c.Build()
	}
	return c.Build(zap.WrapCore(func(console zapcore.Core) zapcore.Core {
		file := zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			rotateWriteSyncer(logFile),
			level,
		)
		return zapcore.NewTee(console, file)
	}))
}
