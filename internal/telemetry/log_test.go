package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/jackpot/internal/telemetry"
)

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		config  telemetry.LogConfig
		wantErr bool
	}{
		"defaults":       {},
		"json debug":     {config: telemetry.LogConfig{Level: "debug", Format: "json"}},
		"text warn":      {config: telemetry.LogConfig{Level: "WARN", Format: "text"}},
		"unknown level":  {config: telemetry.LogConfig{Level: "loud"}, wantErr: true},
		"unknown format": {config: telemetry.LogConfig{Format: "xml"}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := telemetry.NewLogger(new(bytes.Buffer), tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewLogger_RequestID(t *testing.T) {
	buf := new(bytes.Buffer)
	l, err := telemetry.NewLogger(buf, telemetry.LogConfig{Format: "json"})
	require.NoError(t, err)

	ctx := telemetry.WithRequestID(context.Background(), "req-42")
	l.With("component", "test").InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "req-42", rec["request_id"])
	assert.Equal(t, "test", rec["component"])
}

func TestNewLogger_Level(t *testing.T) {
	buf := new(bytes.Buffer)
	l, err := telemetry.NewLogger(buf, telemetry.LogConfig{Level: "warn"})
	require.NoError(t, err)

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
