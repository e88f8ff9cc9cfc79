// Package redisstore keeps each record in a Redis hash with the fields
// "data" and "sum".
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/zeusync/rda/internal/store"
)

const (
	fieldData = "data"
	fieldSum  = "sum"

	defaultPrefix = "rda:"
	scanCount     = 100
)

var ErrCorrupt = errors.New("redisstore: corrupt record")

var _ store.Backend = (*Backend)(nil)

type Option func(*config)

type config struct {
	prefix    string
	ownClient bool
}

// WithPrefix overrides the key prefix. Keys listed by List are returned
// without it.
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

type Backend struct {
	client    redis.UniversalClient
	prefix    string
	ownClient bool
}

// New wraps an existing client. Close does not close it.
func New(client redis.UniversalClient, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is nil")
	}

	cfg := config{prefix: defaultPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Backend{
		client:    client,
		prefix:    cfg.prefix,
		ownClient: cfg.ownClient,
	}, nil
}

// Dial creates a client for addr. Close closes it.
func Dial(addr string, opts ...Option) (*Backend, error) {
	if addr == "" {
		return nil, errors.New("redisstore: address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return New(client, append(opts, func(cfg *config) { cfg.ownClient = true })...)
}

// Ping checks that the server is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Write(ctx context.Context, key string, rec store.Record) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	fields := map[string]any{
		fieldData: rec.Data,
		fieldSum:  strconv.FormatUint(rec.Sum, 16),
	}
	if err := b.client.HSet(ctx, b.prefix+key, fields).Err(); err != nil {
		return fmt.Errorf("redisstore: write %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Read(ctx context.Context, key string) (store.Record, error) {
	if err := store.ValidateKey(key); err != nil {
		return store.Record{}, err
	}
	result, err := b.client.HGetAll(ctx, b.prefix+key).Result()
	if err != nil {
		return store.Record{}, fmt.Errorf("redisstore: read %s: %w", key, err)
	}
	if len(result) == 0 {
		return store.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}

	data, ok := result[fieldData]
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %s: no %s field", ErrCorrupt, key, fieldData)
	}
	sum, err := strconv.ParseUint(result[fieldSum], 16, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return store.Record{Data: data, Sum: sum}, nil
}

func (b *Backend) Remove(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	n, err := b.client.Del(ctx, b.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("redisstore: remove %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return nil
}

// List walks the keyspace with SCAN, so it does not block the server on
// large databases.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: scan: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, b.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return dedupe(keys), nil
}

func (b *Backend) Close() error {
	if b.ownClient {
		return b.client.Close()
	}
	return nil
}

// SCAN may return a key more than once.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
