// Package workspace allocates and reclaims the per-request execution
// directories under the executions root, and prunes old ones by a
// retention count.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Manager allocates exec-<ms>-<rand5> directories under Root and
// prunes beyond a configured retention count.
type Manager struct {
	Root      string
	KeepCount int
	logger    *slog.Logger
}

func NewManager(root string, keepCount int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Root: root, KeepCount: keepCount, logger: logger}
}

var namePattern = regexp.MustCompile(`^exec-(\d+)-[a-z0-9]{5}$`)

// Allocate creates a new, uniquely named workspace directory and
// returns its path. If a retention budget is configured (KeepCount >
// 0), stale workspaces beyond the newest KeepCount are pruned
// afterward.
func (m *Manager) Allocate() (string, error) {
	name := fmt.Sprintf("exec-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:5])
	path := filepath.Join(m.Root, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("allocate workspace: %w", err)
	}

	if m.KeepCount > 0 {
		if err := m.prune(); err != nil {
			m.logger.Warn("workspace: prune after allocate", "error", err)
		}
	}

	return path, nil
}

// Reclaim removes a workspace directory immediately. Used when
// retention is disabled (KeepCount <= 0): the orchestrator calls this
// synchronously as Execute returns, which is before the HTTP layer
// writes the response.
func (m *Manager) Reclaim(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("reclaim workspace: %w", err)
	}
	return nil
}

// prune deletes the oldest workspaces beyond the newest KeepCount,
// ordered by the millisecond component embedded in each directory
// name (not mtime, so a slow write to an older workspace can't save
// it from pruning).
func (m *Manager) prune() error {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read executions root: %w", err)
	}

	type candidate struct {
		name string
		ms   int64
	}

	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		match := namePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		ms, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{name: e.Name(), ms: ms})
	}

	if len(candidates) <= m.KeepCount {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ms < candidates[j].ms })

	toDelete := candidates[:len(candidates)-m.KeepCount]
	for _, c := range toDelete {
		path := filepath.Join(m.Root, c.name)
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("workspace: prune entry", "name", c.name, "error", err)
			continue
		}
		m.logger.Info("workspace: pruned", "name", c.name)
	}

	return nil
}
