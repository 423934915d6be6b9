package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestInitLogger(t *testing.T) {
	logger := InitLogger(LogConfig{Level: "debug", Format: "json"})
	assert.NotNil(t, logger)
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))

	logger = InitLogger(LogConfig{Level: "error", Format: "text"})
	assert.False(t, logger.Enabled(nil, slog.LevelInfo))
}
