package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLogrusLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelInfo, FormatJSON)

	ctx := WithRequestID(context.Background(), "req-1")
	l.Error(ctx, errors.New("boom"), "matching failed", map[string]interface{}{"symbol": "AAPL"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "matching failed", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, "req-1", line["request_id"])
}

func TestLogrusLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn, FormatText)

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden too")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
	assert.Equal(t, FormatJSON, ParseFormat("xml"))
}
