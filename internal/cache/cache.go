// Package cache manages the on-disk dependency cache: one subdirectory
// per cache key, each holding a materialised node_modules tree.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kestrel-run/codecell/internal/dirsize"
)

// Entry describes one cache subdirectory as observed on disk.
type Entry struct {
	Key   string
	Path  string
	Size  int64
	Mtime time.Time
}

// Manager enumerates, measures, and evicts cache entries under Root
// to keep total size within Budget bytes.
type Manager struct {
	Root   string
	Budget int64
	logger *slog.Logger
}

func New(root string, budget int64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Root: root, Budget: budget, logger: logger}
}

// List enumerates every cache entry under Root.
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var out []Entry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			m.logger.Warn("cache: stat entry", "key", e.Name(), "error", err)
			continue
		}
		path := filepath.Join(m.Root, e.Name())
		out = append(out, Entry{
			Key:   e.Name(),
			Path:  path,
			Size:  dirsize.Sum(path, m.logger),
			Mtime: info.ModTime(),
		})
	}
	return out, nil
}

// EntryInfo returns the entry for key, plus whether it exists at all.
func (m *Manager) EntryInfo(key string) (Entry, bool, error) {
	path := filepath.Join(m.Root, key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("stat cache entry: %w", err)
	}
	return Entry{
		Key:   key,
		Path:  path,
		Size:  dirsize.Sum(path, m.logger),
		Mtime: info.ModTime(),
	}, true, nil
}

// Sweep evicts the least-recently-modified entries, oldest first,
// until the cache is under budget with 20% hysteresis headroom so the
// next install doesn't immediately re-trigger eviction.
func (m *Manager) Sweep() error {
	entries, err := m.List()
	if err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	if total <= m.Budget {
		return nil
	}

	target := total - m.Budget + m.Budget/5 // 20% hysteresis
	sort.Slice(entries, func(i, j int) bool { return entries[i].Mtime.Before(entries[j].Mtime) })

	var freed int64
	for _, e := range entries {
		if freed >= target {
			break
		}
		if err := os.RemoveAll(e.Path); err != nil {
			m.logger.Error("cache: evict entry", "key", e.Key, "error", err)
			continue
		}
		m.logger.Info("cache: evicted entry", "key", e.Key, "size", e.Size)
		freed += e.Size
	}

	return nil
}
