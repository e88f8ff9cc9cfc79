// Package localfs keeps one file per key under a directory. A file holds
// the checksum in hex on its first line followed by the Rda text.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zeusync/rda/internal/store"
)

const (
	extension = ".rda"
	tmpPrefix = ".tmp-"
)

var ErrCorrupt = errors.New("localfs: corrupt record")

var _ store.Backend = (*Backend)(nil)

type Backend struct {
	dir string
	mu  sync.RWMutex
}

// New creates dir if needed.
func New(dir string) (*Backend, error) {
	if dir == "" {
		return nil, errors.New("localfs: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create %s: %w", dir, err)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) Dir() string {
	return b.dir
}

// Write replaces the record atomically: the data goes to a temp file in the
// same directory which is then renamed over the target.
func (b *Backend) Write(ctx context.Context, key string, rec store.Record) error {
	if err := b.check(ctx, key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("localfs: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	content := strconv.FormatUint(rec.Sum, 16) + "\n" + rec.Data
	if _, err = tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("localfs: write %s: %w", key, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("localfs: sync %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("localfs: close %s: %w", key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err = os.Rename(tmpPath, b.path(key)); err != nil {
		return fmt.Errorf("localfs: commit %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Read(ctx context.Context, key string) (store.Record, error) {
	if err := b.check(ctx, key); err != nil {
		return store.Record{}, err
	}

	b.mu.RLock()
	content, err := os.ReadFile(b.path(key))
	b.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return store.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("localfs: read %s: %w", key, err)
	}

	header, data, ok := strings.Cut(string(content), "\n")
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %s: no checksum line", ErrCorrupt, key)
	}
	sum, err := strconv.ParseUint(header, 16, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return store.Record{Data: data, Sum: sum}, nil
}

func (b *Backend) Remove(ctx context.Context, key string) error {
	if err := b.check(ctx, key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("localfs: remove %s: %w", key, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	entries, err := os.ReadDir(b.dir)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("localfs: list %s: %w", b.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, extension) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, extension))
	}
	return keys, nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) check(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return store.ValidateKey(key)
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.dir, key+extension)
}
