package logger_test

import (
	"testing"
	"war-api-analyzer/internal/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestGetLogger(t *testing.T) {
	t.Parallel()

	log := logger.GetLogger()
	assert.NotNil(t, log)

	// Subsequent calls return the same instance
	log2 := logger.GetLogger()
	assert.Equal(t, log, log2)

	log.Info("Test log message")
	log.Debug("Test debug message")
	log.Warn("Test warning message")
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	logger.SetLevel(zapcore.DebugLevel)
	log := logger.GetLogger()
	assert.NotNil(t, log)

	logger.SetLevel(zapcore.ErrorLevel)
	log2 := logger.GetLogger()
	assert.Equal(t, log, log2)

	logger.SetLevel(zapcore.InfoLevel)
}

func TestLoggerConcurrency(t *testing.T) {
	t.Parallel()

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			log := logger.GetLogger()
			assert.NotNil(t, log)
			log.Info("Concurrent log message")
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
