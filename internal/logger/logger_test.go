package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/longopass/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, logger.ParseLevel(tc.in))
		})
	}
}

func TestNewRespectsLevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(&buf, "warn", true)

	log.InfoContext(context.Background(), "Hidden")
	assert.Empty(t, buf.String())

	log.WarnContext(context.Background(), "Shown", "key", "value")
	assert.Contains(t, buf.String(), `"msg":"Shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", logger.TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", logger.TruncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "...", logger.TruncateString("abcdef", 2))
	assert.Equal(t, "öğü...", logger.TruncateString("öğüşçıİ", 6))
}
