package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genereveal-server/internal/domain"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(domain.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.WithField("session_id", "s1").Debug("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(domain.LoggingConfig{Level: "warn", Format: "TEXT"}, &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), `msg=kept`)
}

func TestNew_UnknownLevel(t *testing.T) {
	logger := New(domain.LoggingConfig{Level: "verbose"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
