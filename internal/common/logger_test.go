package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	logger := GetLogger()
	assert.NotNil(t, logger)
	logger.Info().Str("writer", "console").Msg("Default logger ready")
}

func TestInitLoggerConsoleOnly(t *testing.T) {
	cfg := validTestConfig()
	cfg.Logging.Output = []string{"stdout"}
	cfg.Logging.Level = "debug"

	logger := InitLogger(cfg)
	assert.NotNil(t, logger)
	logger.Debug().Str("writer", "console").Msg("Logger initialized")
}

func TestPrintBanner(t *testing.T) {
	PrintBanner(GetVersion())
}
