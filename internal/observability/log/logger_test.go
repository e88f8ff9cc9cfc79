package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelDebug)

	l.Info("stored",
		String("key", "p1"),
		Int("bytes", 12),
		Int64("offset", -3),
		Uint64("big", 1<<40),
		Bool("ok", true),
		Float64("ratio", 0.5),
		Duration("took", 2*time.Millisecond),
		Strings("names", []string{"a", "b"}),
		Hex("sum", 0xabc),
		Error(errors.New("boom")),
		Any("extra", map[string]int{"n": 1}),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "stored", e["msg"])
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "p1", e["key"])
	assert.Equal(t, float64(12), e["bytes"])
	assert.Equal(t, float64(-3), e["offset"])
	assert.Equal(t, float64(1<<40), e["big"])
	assert.Equal(t, true, e["ok"])
	assert.Equal(t, 0.5, e["ratio"])
	assert.Equal(t, []any{"a", "b"}, e["names"])
	assert.Equal(t, "0000000000000abc", e["sum"])
	assert.Equal(t, "boom", e["error"])
	assert.Equal(t, map[string]any{"n": float64(1)}, e["extra"])
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	assert.Len(t, decodeLines(t, &buf), 1)
	assert.Equal(t, LevelWarn, l.GetLevel())

	child := l.With(String("component", "x"))
	l.SetLevel(LevelDebug)
	child.Debug("now shown")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "x", entries[1]["component"])
	assert.Equal(t, LevelDebug, child.GetLevel())

	l.SetLevel(LevelSilent)
	l.Error("dropped")
	assert.Len(t, decodeLines(t, &buf), 2)
	assert.Equal(t, LevelSilent, l.GetLevel())
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelInfo).Named("store").Named("localfs")
	l.Info("hello")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.localfs", entries[0]["logger"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("nothing happens")
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NoError(t, l.Sync())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"off":     LevelSilent,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)

	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelSilent} {
		parsed, err := ParseLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}
	assert.Equal(t, "level(7)", Level(7).String())
}
