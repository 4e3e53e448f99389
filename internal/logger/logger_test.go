package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("local").GetLevel())
	assert.Equal(t, logrus.DebugLevel, New("DEV").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("test").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("production").GetLevel())
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("prod", &buf)
	log.WithField("component", "rebuild").Info("done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "done", line["msg"])
	assert.Equal(t, "rebuild", line["component"])
	assert.Equal(t, "info", line["level"])
}
