// Package orchestrator wires the size parser, dependency extractor,
// cache manager, dependency resolver, workspace allocator, and sandbox
// runner into the single request pipeline: validate, allocate, resolve,
// execute, respond, reclaim.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kestrel-run/codecell/internal/bytesize"
	"github.com/kestrel-run/codecell/internal/cache"
	"github.com/kestrel-run/codecell/internal/config"
	"github.com/kestrel-run/codecell/internal/depresolver"
	"github.com/kestrel-run/codecell/internal/depscan"
	"github.com/kestrel-run/codecell/internal/sandbox"
	"github.com/kestrel-run/codecell/internal/workspace"
)

// Options mirrors the request's options object.
type Options struct {
	TimeoutMs   int
	ForceUpdate bool
	Debug       bool
}

// Request is the validated envelope the HTTP layer hands to Execute.
type Request struct {
	Code     string
	Items    any
	CacheKey string
	Options  Options
}

// CacheDebug is the cache-facing slice of the debug payload.
type CacheDebug struct {
	UsedCache                 bool   `json:"usedCache"`
	CacheKey                  string `json:"cacheKey"`
	CurrentCacheSize          int64  `json:"currentCacheSize"`
	CurrentCacheSizeFormatted string `json:"currentCacheSizeFormatted"`
	TotalCacheSize            int64  `json:"totalCacheSize"`
	TotalCacheSizeFormatted   string `json:"totalCacheSizeFormatted"`
}

// ExecutionDebug is the execution-facing slice of the debug payload.
type ExecutionDebug struct {
	StartTime               string            `json:"startTime"`
	InstalledDependencies   map[string]string `json:"installedDependencies"`
	DependencyInstallTimeMs int64             `json:"dependencyInstallTimeMs"`
	TotalResponseTimeMs     int64             `json:"totalResponseTimeMs"`
	ExecutionTimeMs         int64             `json:"executionTimeMs"`
}

// ServerDebug is the server-facing slice of the debug payload.
type ServerDebug struct {
	NodeVersion string `json:"nodeVersion"`
}

type Debug struct {
	Server    ServerDebug    `json:"server"`
	Cache     CacheDebug     `json:"cache"`
	Execution ExecutionDebug `json:"execution"`
}

// Response is the Execution Result, optionally carrying a merged debug
// payload.
type Response struct {
	sandbox.Result
	Debug *Debug `json:"debug,omitempty"`
}

type Orchestrator struct {
	cfg       *config.Config
	cache     *cache.Manager
	resolver  *depresolver.Resolver
	workspace *workspace.Manager
	sandbox   *sandbox.Runner
	logger    *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cacheMgr := cache.New(cfg.CacheDir, cfg.CacheSizeLimitBytes(), logger)
	return &Orchestrator{
		cfg:       cfg,
		cache:     cacheMgr,
		resolver:  depresolver.New(cacheMgr, logger),
		workspace: workspace.NewManager(cfg.ExecutionDir, cfg.ExecutionsDataPruneMaxCount, logger),
		sandbox:   sandbox.New(logger),
		logger:    logger,
	}
}

// Warm runs the cache manager's startup sweep, per the requirement
// that sweep() also runs once at startup.
func (o *Orchestrator) Warm() {
	if err := o.cache.Sweep(); err != nil {
		o.logger.Warn("orchestrator: startup sweep", "error", err)
	}
}

// Validate checks the request invariant (code and cacheKey both
// present) before any resource is allocated.
func Validate(req Request) error {
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.CacheKey) == "" {
		return fmt.Errorf("%w: code and cacheKey are required", ErrBadRequest)
	}
	return nil
}

// Execute runs the full pipeline. A non-nil error here is always one
// of ErrBadRequest/ErrInternal and should map to a non-200 status; a
// client-facing execution failure (dependency install, user program
// failure, bad output format) is instead encoded into Response with
// Success=false and a nil error, since those are 200-level results.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Response, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	timeout := time.Duration(req.Options.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(o.cfg.DefaultTimeoutMs) * time.Millisecond
	}

	deps := depscan.Extract(req.Code)

	wsPath, err := o.workspace.Allocate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	retainWorkspace := o.cfg.ExecutionsDataPruneMaxCount > 0
	defer func() {
		if !retainWorkspace {
			if err := o.workspace.Reclaim(wsPath); err != nil {
				o.logger.Warn("orchestrator: reclaim workspace", "path", wsPath, "error", err)
			}
		}
	}()

	startTime := time.Now()

	if err := sandbox.WriteProgram(wsPath, req.Code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := sandbox.WriteInput(wsPath, req.Items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := sandbox.WriteWrapper(wsPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	installStart := time.Now()
	resolveResult, resolveErr := o.resolver.Resolve(ctx, deps, wsPath, req.CacheKey, req.Options.ForceUpdate)
	installElapsed := time.Since(installStart)

	if resolveErr != nil {
		o.logger.Warn("orchestrator: dependency install failed",
			"cacheKey", req.CacheKey, "kind", ErrDependencyInstallFailed, "error", resolveErr)
		resp := &Response{Result: sandbox.Result{
			Success: false,
			Console: []sandbox.ConsoleEntry{},
			Error:   resolveErr.Error(),
		}}
		if req.Options.Debug {
			resp.Debug = o.debugPayload(req, startTime, nil, installElapsed, 0, time.Since(startTime))
		}
		return resp, nil
	}

	execStart := time.Now()
	result, _, runErr := o.sandbox.Run(ctx, wsPath, timeout)
	execElapsed := time.Since(execStart)
	if runErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, runErr)
	}

	if result.Stack != "" {
		result.Stack = sandbox.ScrubStack(result.Stack, wsPath)
	}

	if !result.Success {
		kind := ErrExecutionFailed
		if result.Error == "Invalid output format" {
			kind = ErrOutputFormatInvalid
		}
		o.logger.Info("orchestrator: execution failed", "cacheKey", req.CacheKey, "kind", kind, "error", result.Error)
	}

	resp := &Response{Result: *result}
	if req.Options.Debug {
		resp.Debug = o.debugPayload(req, startTime, resolveResult, installElapsed, execElapsed, time.Since(startTime))
	}

	return resp, nil
}

func (o *Orchestrator) debugPayload(req Request, startTime time.Time, resolveResult *depresolver.Result, installElapsed, execElapsed, totalElapsed time.Duration) *Debug {
	var usedCache bool
	var installed map[string]string
	if resolveResult != nil {
		usedCache = resolveResult.UsedCache
		installed = resolveResult.Versions
	}

	entry, exists, err := o.cache.EntryInfo(req.CacheKey)
	var currentSize int64
	if err != nil {
		o.logger.Warn("orchestrator: debug cache entry lookup", "error", err)
	} else if exists {
		currentSize = entry.Size
	}

	var totalSize int64
	if entries, err := o.cache.List(); err != nil {
		o.logger.Warn("orchestrator: debug cache list", "error", err)
	} else {
		for _, e := range entries {
			totalSize += e.Size
		}
	}

	return &Debug{
		Server: ServerDebug{NodeVersion: nodeVersion()},
		Cache: CacheDebug{
			UsedCache:                 usedCache,
			CacheKey:                  req.CacheKey,
			CurrentCacheSize:          currentSize,
			CurrentCacheSizeFormatted: bytesize.Format(currentSize),
			TotalCacheSize:            totalSize,
			TotalCacheSizeFormatted:   bytesize.Format(totalSize),
		},
		Execution: ExecutionDebug{
			StartTime:               startTime.Format(time.RFC3339Nano),
			InstalledDependencies:   installed,
			DependencyInstallTimeMs: installElapsed.Milliseconds(),
			TotalResponseTimeMs:     totalElapsed.Milliseconds(),
			ExecutionTimeMs:         execElapsed.Milliseconds(),
		},
	}
}

func nodeVersion() string {
	out, err := exec.Command("node", "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
