package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger_WithoutContextLogger(t *testing.T) {
	retrieved := G(context.Background())

	assert.NotNil(t, retrieved)
	assert.Equal(t, L.Logger, retrieved.Logger)
}

func TestWithFields(t *testing.T) {
	ctx := WithLogger(context.Background(), logrus.NewEntry(logrus.New()).WithField("task_id", "abc"))
	ctx = WithFields(ctx, logrus.Fields{"stage": "discover"})

	entry := G(ctx)
	assert.Equal(t, "abc", entry.Data["task_id"])
	assert.Equal(t, "discover", entry.Data["stage"])
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	setLoggerFormat(l, "json")

	ctx := WithLogger(context.Background(), logrus.NewEntry(l))
	G(ctx).WithField("skill", "pdf").Info("selected skill")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "selected skill", out["message"])
	assert.Equal(t, "info", out["logLevel"])
	assert.Equal(t, "pdf", out["skill"])
	assert.Contains(t, out, "timestamp")
}

func TestPrettyFormat(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	setLoggerFormat(l, "pretty")

	l.WithFields(logrus.Fields{"b": 2, "a": 1}).Warn("missing attachment")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "  ⚡ missing attachment"))
	assert.Contains(t, line, "a=1 b=2")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}
