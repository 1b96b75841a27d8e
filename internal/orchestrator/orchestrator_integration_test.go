//go:build integration

package orchestrator

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kestrel-run/codecell/internal/config"
	"github.com/stretchr/testify/require"
)

func requireNode(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available on PATH")
	}
}

// TestExecute_S1_NoDepsPureData exercises scenario S1: a dependency-free
// program that doubles each element of its input.
func TestExecute_S1_NoDepsPureData(t *testing.T) {
	requireNode(t)

	root := t.TempDir()
	cfg := &config.Config{
		ExecutionDir:                filepath.Join(root, "executions"),
		CacheDir:                    filepath.Join(root, "cache"),
		DefaultTimeoutMs:            10000,
		CacheSizeLimit:              "1GB",
		ExecutionsDataPruneMaxCount: 0,
	}

	o := New(cfg, nil)

	req := Request{
		Code:     "module.exports = function(items){ return items.map(x=>x*2); };",
		Items:    []int{1, 2, 3, 4, 5},
		CacheKey: "t1",
	}

	resp, err := o.Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, []any{float64(2), float64(4), float64(6), float64(8), float64(10)}, resp.Data)
	require.Empty(t, resp.Console)
}
