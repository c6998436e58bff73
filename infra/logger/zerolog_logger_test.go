package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("engine", &buf)
	l.Debugw("operation built", map[string]any{"changes": 2})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "operation built", line["message"])
	assert.EqualValues(t, 2, line["changes"])
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("service", &buf).With(map[string]any{"operation": "op-1"})
	l.Infof("committed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "service", line["component"])
	assert.Equal(t, "op-1", line["operation"])
	assert.Equal(t, NopLogger{}, NopLogger{}.With(map[string]any{"k": 1}))
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		setConsole(false)
	})
	require.NoError(t, Configure(Config{Level: "warn"}))
	var buf bytes.Buffer
	l := NewWithWriter("engine", &buf)
	l.Infof("hidden")
	assert.Zero(t, buf.Len())
	l.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, Configure(Config{Level: "loud"}))
	assert.Error(t, Configure(Config{Format: "xml"}))
	assert.NoError(t, Configure(Config{Format: "console"}))
}
