package logging

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"trace", zerolog.TraceLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var file bytes.Buffer
	logger := New("warn", io.Discard, &file)

	logger.Info().Msg("quiet")
	assert.Empty(t, file.String())

	logger.Warn().Str("unit", "U3").Msg("no line of fire")
	out := file.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "no line of fire")
	assert.Contains(t, out, "unit=U3")
	assert.NotContains(t, out, "\x1b[", "file output is not coloured")
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger := New("debug", &console)
	logger.Debug().Msg("state pushed")
	assert.Contains(t, console.String(), "state pushed")
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
