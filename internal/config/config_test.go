package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/pkg/rda"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, log.LevelInfo, cfg.LogLevel())

	codec, err := cfg.Codec.Build()
	require.NoError(t, err)
	assert.Equal(t, rda.DefaultDelimiters, codec.Delimiters())
	assert.Equal(t, rda.DefaultEscape, codec.Escape())
}

func TestParse_OverridesDefaults(t *testing.T) {
	src := `
log:
  level: debug
codec:
  delimiters: "/+"
  escape: "%"
store:
  backend: redis
  redis:
    addr: "127.0.0.1:6380"
    prefix: "test:"
  concurrency: 2
`
	cfg, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, log.LevelDebug, cfg.LogLevel())
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "127.0.0.1:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, "test:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 2, cfg.Store.Concurrency)
	assert.Equal(t, "./data", cfg.Store.Dir, "unset keys keep their defaults")

	codec, err := cfg.Codec.Build()
	require.NoError(t, err)
	text, err := codec.Marshal(rda.NewList(rda.NewScalar("3"), rda.NewScalar("4")))
	require.NoError(t, err)
	assert.Equal(t, "/%/3/4", text)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown backend":     "store:\n  backend: etcd\n",
		"duplicate delimiter": "codec:\n  delimiters: \"||\"\n",
		"empty delimiters":    "codec:\n  delimiters: \"\"\n",
		"space delimiter":     "codec:\n  delimiters: \"| \"\n",
		"escape is delimiter": "codec:\n  escape: \"|\"\n",
		"long escape":         "codec:\n  escape: \"ab\"\n",
		"bad level":           "log:\n  level: loud\n",
		"zero concurrency":    "store:\n  concurrency: 0\n",
		"missing dir":         "store:\n  dir: \"\"\n",
		"missing redis addr":  "store:\n  backend: redis\n  redis:\n    addr: \"\"\n",
		"bad redis addr":      "store:\n  backend: redis\n  redis:\n    addr: \"no-port\"\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), err.Error())
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("colour: blue\n"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  dir: /var/lib/rda\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/rda", cfg.Store.Dir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
