// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/privatedns/src/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := logging.ParseLevel("verbose")
	assert.ErrorIs(t, err, logging.ErrUnknownLevel)
}

func TestNewWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("private DNS configuration applied", "netid", 100, "mode", "strict")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "private DNS configuration applied")
	assert.Contains(t, out, "netid=100")
	assert.Contains(t, out, "mode=strict")
	assert.NotContains(t, out, "\x1b[", "no colors for a non-terminal writer")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := logging.Setup("loud")
	assert.ErrorIs(t, err, logging.ErrUnknownLevel)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { logging.Discard().Error("dropped") })
}
