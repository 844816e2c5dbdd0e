package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	instance    *zap.Logger     //nolint:gochecknoglobals // Singleton pattern for logger
	atomicLevel zap.AtomicLevel //nolint:gochecknoglobals // Singleton pattern for logger
	once        sync.Once       //nolint:gochecknoglobals // Singleton pattern for logger
)

func build() {
	atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encoderCfg.CallerKey = "" // remove caller
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stdout),
		atomicLevel,
	)

	instance = zap.New(core)
}

// GetLogger returns the process-wide logger, building it on first use.
func GetLogger() *zap.Logger {
	once.Do(build)
	return instance
}

// SetLevel changes the minimum level of the shared logger.
func SetLevel(level zapcore.Level) {
	once.Do(build)
	atomicLevel.SetLevel(level)
}
