// Package store persists Serializable values as Rda text behind a pluggable
// Backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/pkg/concurrent"
	"github.com/zeusync/rda/pkg/encoding"
	"github.com/zeusync/rda/pkg/rda"
)

const maxKeyLength = 200

var (
	ErrNotFound   = errors.New("store: not found")
	ErrInvalidKey = errors.New("store: invalid key")
	ErrChecksum   = errors.New("store: checksum mismatch")
	ErrNoRegistry = errors.New("store: no registry configured")
	ErrNilBackend = errors.New("store: backend is nil")
)

// Record is what a backend keeps for one key: the Rda text and the xxhash
// of that text.
type Record struct {
	Data string
	Sum  uint64
}

// Backend stores records by key. Implementations must be safe for
// concurrent use and return ErrNotFound for unknown keys.
type Backend interface {
	Write(ctx context.Context, key string, rec Record) error
	Read(ctx context.Context, key string) (Record, error)
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

type Option func(*Store)

// WithCodec sets the codec used to render values. Reads accept any codec.
func WithCodec(codec *rda.Codec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegistry enables Save and Load.
func WithRegistry(reg *encoding.Registry) Option {
	return func(s *Store) {
		s.registry = reg
	}
}

type Store struct {
	backend  Backend
	codec    *rda.Codec
	registry *encoding.Registry
	log      log.Log
}

func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	s := &Store{
		backend: backend,
		codec:   rda.Default(),
		log:     log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("store")
	return s, nil
}

// NewKey returns a fresh random key.
func NewKey() string {
	return uuid.NewString()
}

// ValidateKey rejects keys that could escape a directory or a key prefix.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > maxKeyLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxKeyLength)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\*?`):
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidKey, key)
	}
	for _, ch := range key {
		if unicode.IsControl(ch) || unicode.IsSpace(ch) {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidKey, key)
		}
	}
	return nil
}

// Checksum is the value stored next to data in a Record.
func Checksum(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Put encodes v and writes it under key.
func (s *Store) Put(ctx context.Context, key string, v encoding.Serializable) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	text, err := encoding.Marshal(v, s.codec)
	if err != nil {
		return err
	}
	return s.write(ctx, key, text)
}

// Get reads key and decodes it into target. target is left unchanged on
// failure. A record whose checksum does not match its data is reported as a
// decoding error wrapping ErrChecksum.
func (s *Store) Get(ctx context.Context, key string, target encoding.Serializable) error {
	text, err := s.read(ctx, key)
	if err != nil {
		return err
	}
	if err = encoding.Unmarshal(text, target); err != nil {
		s.log.Warn("decode failed", log.String("key", key), log.Error(err))
		return err
	}
	return nil
}

// Save stores v inside a registry envelope, so Load can restore it without
// knowing its type.
func (s *Store) Save(ctx context.Context, key string, v encoding.Serializable) error {
	if s.registry == nil {
		return ErrNoRegistry
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	env, err := s.registry.Wrap(v)
	if err != nil {
		return err
	}
	text, err := s.codec.Marshal(env)
	if err != nil {
		return encoding.NewEncodingError("envelope", "", err)
	}
	return s.write(ctx, key, text)
}

// Load restores a value written by Save.
func (s *Store) Load(ctx context.Context, key string) (encoding.Serializable, error) {
	if s.registry == nil {
		return nil, ErrNoRegistry
	}
	text, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	env, err := rda.Parse(text)
	if err != nil {
		return nil, encoding.NewDecodingError("envelope", "", err)
	}
	return s.registry.Unwrap(env)
}

// Raw returns the stored text of key after verifying its checksum.
func (s *Store) Raw(ctx context.Context, key string) (string, error) {
	return s.read(ctx, key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.backend.Remove(ctx, key); err != nil {
		return err
	}
	s.log.Debug("deleted", log.String("key", key))
	return nil
}

// Keys returns every stored key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) write(ctx context.Context, key, text string) error {
	rec := Record{Data: text, Sum: Checksum(text)}
	if err := s.backend.Write(ctx, key, rec); err != nil {
		s.log.Error("write failed", log.String("key", key), log.Error(err))
		return err
	}
	s.log.Debug("stored", log.String("key", key), log.Int("bytes", len(text)), log.Hex("sum", rec.Sum))
	return nil
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	rec, err := s.backend.Read(ctx, key)
	if err != nil {
		return "", err
	}
	if sum := Checksum(rec.Data); sum != rec.Sum {
		s.log.Warn("checksum mismatch",
			log.String("key", key),
			log.Hex("want", rec.Sum),
			log.Hex("got", sum),
		)
		return "", encoding.NewDecodingError("", "", fmt.Errorf("%w: key %q", ErrChecksum, key))
	}
	return rec.Data, nil
}

// PutAll writes items with at most limit concurrent backend writes and
// returns the first error.
func PutAll(ctx context.Context, s *Store, items map[string]encoding.Serializable, limit int) error {
	keys := make([]string, 0, len(items))
	for key := range items {
		if err := ValidateKey(key); err != nil {
			return err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	err := concurrent.ForEach(ctx, keys, limit, func(ctx context.Context, key string) error {
		return s.Put(ctx, key, items[key])
	})
	if err != nil {
		return err
	}
	s.log.Info("stored batch", log.Int("count", len(keys)), log.Int("limit", limit))
	return nil
}

// LoadAll restores the values written by Save under keys, in the order of
// keys, with at most limit concurrent backend reads. It returns the first
// error and no values.
func LoadAll(ctx context.Context, s *Store, keys []string, limit int) ([]encoding.Serializable, error) {
	if s.registry == nil {
		return nil, ErrNoRegistry
	}
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
	}

	out, err := concurrent.Map(ctx, keys, limit, s.Load)
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded batch", log.Int("count", len(keys)), log.Int("limit", limit))
	return out, nil
}
