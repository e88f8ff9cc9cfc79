// Package config loads the YAML configuration shared by the CLI and the
// injector.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/pkg/rda"
)

const (
	BackendLocalFS = "localfs"
	BackendRedis   = "redis"
)

type Config struct {
	Log   LogConfig   `yaml:"log"`
	Codec CodecConfig `yaml:"codec"`
	Store StoreConfig `yaml:"store"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error silent none off"`
}

type CodecConfig struct {
	Delimiters string `yaml:"delimiters" validate:"required,delims"`
	Escape     string `yaml:"escape" validate:"required,len=1"`
}

type StoreConfig struct {
	Backend     string      `yaml:"backend" validate:"required,oneof=localfs redis"`
	Dir         string      `yaml:"dir" validate:"required_if=Backend localfs"`
	Redis       RedisConfig `yaml:"redis"`
	Concurrency int         `yaml:"concurrency" validate:"min=1,max=256"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr" validate:"omitempty,hostname_port"`
	Prefix string `yaml:"prefix"`
}

var ErrInvalid = errors.New("config: invalid")

// Default returns a configuration that passes Validate.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Codec: CodecConfig{
			Delimiters: rda.DefaultDelimiters,
			Escape:     string(rda.DefaultEscape),
		},
		Store: StoreConfig{
			Backend: BackendLocalFS,
			Dir:     "./data",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "rda:",
			},
			Concurrency: 8,
		},
	}
}

// Load reads and validates the file at path. Keys missing from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML from r on top of Default and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags, backend requirements and the codec header.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Store.Backend == BackendRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("%w: store.redis.addr is required for the redis backend", ErrInvalid)
	}
	if _, err := c.Codec.Build(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Build returns a codec with the configured delimiters and escape.
func (c CodecConfig) Build() (*rda.Codec, error) {
	escape, size := utf8.DecodeRuneInString(c.Escape)
	if size == 0 || size != len(c.Escape) {
		return nil, fmt.Errorf("escape must be a single character, got %q", c.Escape)
	}
	return rda.NewCodec(rda.WithDelimiters(c.Delimiters), rda.WithEscape(escape))
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("delims", delimitersValidator)
	return v
}

// delimitersValidator accepts non-empty strings of distinct printable,
// non-space characters.
func delimitersValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	seen := make(map[rune]struct{}, len(s))
	for _, ch := range s {
		if ch <= ' ' || ch == utf8.RuneError {
			return false
		}
		if _, dup := seen[ch]; dup {
			return false
		}
		seen[ch] = struct{}{}
	}
	return true
}
