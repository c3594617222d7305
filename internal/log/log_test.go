package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "week", "2025-11-10")
	Error("shown error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn week=2025-11-10")
	assert.Contains(t, out, "[ERROR] shown error err=boom")
}

func TestFormatKVsQuotesAndDropsOddKey(t *testing.T) {
	got := formatKVs("title", "Open Gym", "count", 3, "dangling")
	assert.Equal(t, ` title="Open Gym" count=3`, got)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestDebugEnabled(t *testing.T) {
	buf := captureOutput(t, LevelDebug)
	Debug("row skipped", "reason", "malformed")
	assert.True(t, strings.Contains(buf.String(), "[DEBUG] row skipped reason=malformed"))
}
