package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCache keeps one JSON file per entry under dir, fanned out into
// 256 subdirectories by the first byte of the key digest.
type FileCache struct {
	dir string
	now func() time.Time
}

// DefaultDir returns the CLI cache directory, $HOME/.cache/graftwood.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "graftwood"), nil
}

// NewFileCache opens (and creates) a file cache in dir.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

type fileEntry struct {
	Data      []byte    `json:"data"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get reads an entry. Expired and unreadable entries are removed and
// reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	e, err := readEntry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case errors.Is(err, errCorrupt):
		_ = os.Remove(path)
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if e.expired(c.now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set writes an entry atomically (temp file plus rename).
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	now := c.now()
	e := fileEntry{Data: data, StoredAt: now}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes an entry if present.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *FileCache) Close() error { return nil }

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Stats describes the entries on disk.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
}

// Stats walks the cache directory.
func (c *FileCache) Stats() (Stats, error) {
	var st Stats
	now := c.now()
	err := c.each(func(path string, info fs.FileInfo) error {
		st.Entries++
		st.Bytes += info.Size()
		if e, err := readEntry(path); err != nil || e.expired(now) {
			st.Expired++
		}
		return nil
	})
	return st, err
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	return c.remove(func(string) bool { return true })
}

// Prune removes expired and unreadable entries only.
func (c *FileCache) Prune() (int, error) {
	now := c.now()
	return c.remove(func(path string) bool {
		e, err := readEntry(path)
		return err != nil || e.expired(now)
	})
}

func (c *FileCache) remove(match func(path string) bool) (int, error) {
	n := 0
	err := c.each(func(path string, _ fs.FileInfo) error {
		if !match(path) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		n++
		_ = os.Remove(filepath.Dir(path)) // fails while the shard still has entries
		return nil
	})
	return n, err
}

func (c *FileCache) each(fn func(path string, info fs.FileInfo) error) error {
	paths, err := filepath.Glob(filepath.Join(c.dir, "??", "*.json"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(p, info); err != nil {
			return err
		}
	}
	return nil
}

func (c *FileCache) path(key string) string {
	d := digest(key)
	return filepath.Join(c.dir, d[:2], d[2:]+".json")
}

var errCorrupt = errors.New("corrupt cache entry")

func readEntry(path string) (fileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileEntry{}, err
	}
	var e fileEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fileEntry{}, errCorrupt
	}
	return e, nil
}

var _ Cache = (*FileCache)(nil)
