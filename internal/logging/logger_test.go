package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")
	ctx := context.Background()

	log.Info(ctx, "hidden", "a", 1)
	log.Warn(ctx, "wrn", "b", 2)
	log.Error(ctx, "err", "c", 3)

	out := buf.String()
	assert.NotContains(t, out, "msg=hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "b=2")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "c=3")
}

func TestNewJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json").With("component", "sync")

	log.Info(context.Background(), "done", "rows", 12)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "done", line["msg"])
	assert.Equal(t, "sync", line["component"])
	assert.EqualValues(t, 12, line["rows"])
}

func TestDiscardDoesNotPanic(t *testing.T) {
	log := Discard()
	ctx := context.TODO()
	log.Info(ctx, "ok")
	log.Warn(ctx, "ok")
	log.Error(ctx, "ok")
	log.With("k", "v").Info(ctx, "ok")
}
