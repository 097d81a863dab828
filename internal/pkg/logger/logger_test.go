package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestConfigure_JSONWithService(t *testing.T) {
	t.Cleanup(func() { Configure(Config{Level: InfoLevel}) })

	var buf bytes.Buffer
	Configure(Config{Level: WarnLevel, Output: &buf, Service: "academy"})

	Info().Msg("dropped")
	lgr := Component("allocator")
	lgr.Warn().Str("branch", "wardha").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "academy", entry["service"])
	assert.Equal(t, "allocator", entry["component"])
	assert.Equal(t, "wardha", entry["branch"])
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
