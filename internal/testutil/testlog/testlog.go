package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/danmuck/duplex/internal/logging"
)

// Start configures test logging and returns a logger scoped to the test.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	logger := logging.New("test")
	logger.Info().Str("test", t.Name()).Msg("start")
	return logger
}
