// Package depresolver materialises a request's dependency set into a
// workspace's node_modules, reusing a cache entry keyed by the
// client-supplied cache key whenever it already covers the requested
// dependencies.
package depresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kestrel-run/codecell/internal/cache"
	"github.com/kestrel-run/codecell/internal/depscan"
)

// Result carries the actually-installed version of each requested
// dependency, discovered by reading each package's own metadata after
// install (or reuse).
type Result struct {
	Versions  map[string]string
	UsedCache bool
}

type Resolver struct {
	cache  *cache.Manager
	logger *slog.Logger
}

func New(cacheMgr *cache.Manager, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cache: cacheMgr, logger: logger}
}

// Resolve makes deps available as workspaceDir/node_modules, using or
// repopulating the cache entry named by cacheKey.
func (r *Resolver) Resolve(ctx context.Context, deps depscan.Set, workspaceDir, cacheKey string, forceUpdate bool) (*Result, error) {
	if len(deps) == 0 {
		return &Result{Versions: map[string]string{}}, nil
	}

	cacheEntryPath := filepath.Join(r.cache.Root, cacheKey)
	cacheNodeModules := filepath.Join(cacheEntryPath, "node_modules")
	workspaceNodeModules := filepath.Join(workspaceDir, "node_modules")

	if !forceUpdate && dirExists(cacheNodeModules) && reuseComplete(cacheNodeModules, deps) {
		err := linkOrCopy(cacheNodeModules, workspaceNodeModules)
		if err == nil {
			versions, err := readVersions(workspaceNodeModules, deps)
			if err != nil {
				return nil, err
			}
			return &Result{Versions: versions, UsedCache: true}, nil
		}
		r.logger.Warn("depresolver: reuse cache entry, falling back to install", "key", cacheKey, "error", err)
		if err := os.RemoveAll(workspaceNodeModules); err != nil {
			r.logger.Warn("depresolver: remove partial node_modules", "path", workspaceNodeModules, "error", err)
		}
	}

	if err := writeManifest(workspaceDir, deps); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := r.install(ctx, workspaceDir); err != nil {
		return nil, fmt.Errorf("install dependencies: %w", err)
	}

	if !forceUpdate {
		if err := r.cache.Sweep(); err != nil {
			r.logger.Warn("depresolver: sweep before repopulate", "error", err)
		}
		if err := os.RemoveAll(cacheEntryPath); err != nil {
			r.logger.Warn("depresolver: remove stale cache entry", "key", cacheKey, "error", err)
		}
		if err := os.MkdirAll(cacheEntryPath, 0755); err != nil {
			r.logger.Warn("depresolver: create cache entry dir", "key", cacheKey, "error", err)
		} else if err := copyDir(workspaceNodeModules, cacheNodeModules); err != nil {
			r.logger.Warn("depresolver: repopulate cache entry", "key", cacheKey, "error", err)
		}
	}

	versions, err := readVersions(workspaceNodeModules, deps)
	if err != nil {
		return nil, err
	}
	return &Result{Versions: versions, UsedCache: false}, nil
}

// install invokes the guest package manager against the manifest
// already written into workspaceDir.
func (r *Resolver) install(ctx context.Context, workspaceDir string) error {
	cmd := exec.CommandContext(ctx, "npm", "install", "--no-audit", "--no-fund")
	cmd.Dir = workspaceDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

type manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
}

func writeManifest(workspaceDir string, deps depscan.Set) error {
	m := manifest{
		Name:         "codecell-execution",
		Version:      "0.0.0",
		Private:      true,
		Dependencies: map[string]string(deps),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(workspaceDir, "package.json"), data, 0644)
}

// reuseComplete verifies that every package in deps exists under
// cacheNodeModules with its own metadata file. Scoped packages require
// both the scope directory and the package directory to be present.
func reuseComplete(cacheNodeModules string, deps depscan.Set) bool {
	for name := range deps {
		pkgDir := filepath.Join(cacheNodeModules, filepath.FromSlash(name))
		if !dirExists(pkgDir) {
			return false
		}
		if !fileExists(filepath.Join(pkgDir, "package.json")) {
			return false
		}
		if strings.HasPrefix(name, "@") {
			scope := strings.SplitN(name, "/", 2)[0]
			if !dirExists(filepath.Join(cacheNodeModules, scope)) {
				return false
			}
		}
	}
	return true
}

// linkOrCopy symlinks dst to src; if that fails (e.g. on platforms
// without privileged symlinks), it falls back to a recursive copy.
func linkOrCopy(src, dst string) error {
	if err := os.Symlink(src, dst); err == nil {
		return nil
	}
	return copyDir(src, dst)
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())

		info, err := os.Lstat(srcPath)
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		case info.IsDir():
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		default:
			if err := copyFile(srcPath, dstPath, info.Mode()); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// readVersions reads each requested package's installed version from
// its own package.json inside nodeModules.
func readVersions(nodeModules string, deps depscan.Set) (map[string]string, error) {
	versions := make(map[string]string, len(deps))
	for name := range deps {
		pkgJSON := filepath.Join(nodeModules, filepath.FromSlash(name), "package.json")
		data, err := os.ReadFile(pkgJSON)
		if err != nil {
			versions[name] = "unknown"
			continue
		}
		var meta struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &meta); err != nil || meta.Version == "" {
			versions[name] = "unknown"
			continue
		}
		versions[name] = meta.Version
	}
	return versions, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
