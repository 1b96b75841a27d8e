// Package sandbox prepares a workspace for a single guest-language
// invocation, runs it under a wall-clock deadline, and classifies the
// child's exit into a framed execution result.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	ProgramFile = "program.js"
	InputFile   = "input.json"
	WrapperFile = "wrapper.js"
)

// ConsoleEntry is one diagnostic call captured from the guest program.
type ConsoleEntry struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Result is the framed outcome of one execution, mirroring the JSON
// line the wrapper program emits on its primary or diagnostic stream.
type Result struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Console []ConsoleEntry `json:"console"`
	Error   string         `json:"error,omitempty"`
	Stack   string         `json:"stack,omitempty"`
}

type Runner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// WriteProgram writes the user's source verbatim to its fixed filename
// inside the workspace.
func WriteProgram(workspaceDir, code string) error {
	return os.WriteFile(filepath.Join(workspaceDir, ProgramFile), []byte(code), 0644)
}

// WriteInput serialises items as JSON into the workspace's input file.
func WriteInput(workspaceDir string, items any) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	return os.WriteFile(filepath.Join(workspaceDir, InputFile), data, 0644)
}

// WriteWrapper writes the guest-language wrapper program into the
// workspace. The wrapper intercepts console output, loads the user
// module, invokes its default export with the deserialised input, and
// emits exactly one framed JSON line on success (stdout) or failure
// (stderr), using the stream's saved original writer so the emit
// itself is never captured as a console entry.
func WriteWrapper(workspaceDir string) error {
	return os.WriteFile(filepath.Join(workspaceDir, WrapperFile), []byte(wrapperSource), 0644)
}

const wrapperSource = `"use strict";
const fs = require("fs");
const path = require("path");

const realStdoutWrite = process.stdout.write.bind(process.stdout);
const realStderrWrite = process.stderr.write.bind(process.stderr);

const consoleEntries = [];

function safeStringify(arg) {
  if (arg === undefined) return "undefined";
  if (arg === null) return "null";
  if (typeof arg === "string") return arg;
  if (typeof arg !== "object" && typeof arg !== "function") return String(arg);
  try {
    const seen = new WeakSet();
    return JSON.stringify(arg, (key, value) => {
      if (typeof value === "object" && value !== null) {
        if (seen.has(value)) return "[Circular]";
        seen.add(value);
      }
      return value;
    });
  } catch (e) {
    return "[Unserializable]";
  }
}

function record(type) {
  return function (...args) {
    consoleEntries.push({
      type: type,
      message: args.map(safeStringify).join(" "),
      timestamp: new Date().toISOString(),
    });
  };
}

console.log = record("log");
console.info = record("info");
console.warn = record("warn");
console.error = record("error");
console.debug = record("debug");

function emitSuccess(data) {
  realStdoutWrite(JSON.stringify({ success: true, data: data, console: consoleEntries }) + "\n");
}

function emitFailure(err) {
  realStderrWrite(
    JSON.stringify({
      success: false,
      error: err && err.message ? err.message : String(err),
      stack: err && err.stack ? err.stack : undefined,
      console: consoleEntries,
    }) + "\n"
  );
}

async function main() {
  const programPath = path.join(__dirname, "program.js");
  const inputPath = path.join(__dirname, "input.json");

  let mod;
  try {
    mod = require(programPath);
  } catch (e) {
    emitFailure(e);
    process.exitCode = 1;
    return;
  }

  const entry = mod && mod.__esModule ? mod.default : mod;
  if (typeof entry !== "function") {
    emitFailure(new Error("module default export is not callable"));
    process.exitCode = 1;
    return;
  }

  let items;
  try {
    items = JSON.parse(fs.readFileSync(inputPath, "utf8"));
  } catch (e) {
    emitFailure(e);
    process.exitCode = 1;
    return;
  }

  try {
    const result = await entry(items);
    emitSuccess(result);
  } catch (e) {
    emitFailure(e);
    process.exitCode = 1;
  }
}

main();
`

// Run spawns the guest interpreter against the workspace's wrapper
// program, enforces timeout as a hard wall-clock deadline, and
// classifies the outcome. The returned error is always nil: guest-side
// failures are classified by classifyOutcome, and a child that could
// not be spawned or waited on is reported as a failed Result whose
// Error is the spawn error.
func (r *Runner) Run(ctx context.Context, workspaceDir string, timeout time.Duration) (*Result, time.Duration, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "node", WrapperFile)
	cmd.Dir = workspaceDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Spawn failure: binary missing, permissions, etc.
			result := &Result{
				Success: false,
				Console: []ConsoleEntry{},
				Error:   err.Error(),
			}
			r.logger.Warn("sandbox: spawn failed", "workspace", workspaceDir, "error", err)
			return result, elapsed, nil
		}
	}

	timedOut := runCtx.Err() == context.DeadlineExceeded
	result := classifyOutcome(err, stdout.Bytes(), stderr.Bytes(), timedOut, timeout)
	if result.Error == "Invalid output format" {
		r.logger.Warn("sandbox: unparsable output",
			"workspace", workspaceDir, "stdout", stdout.String(), "stderr", stderr.String())
	}
	return result, elapsed, nil
}

// classifyOutcome implements the exit-code / stream-emptiness decision
// table: a clean exit with nothing on the diagnostic stream means
// success, parsed from the primary stream; anything else is a
// failure, parsed from the diagnostic stream when present.
func classifyOutcome(runErr error, stdout, stderr []byte, timedOut bool, timeout time.Duration) *Result {
	if timedOut {
		return &Result{
			Success: false,
			Console: []ConsoleEntry{},
			Error:   fmt.Sprintf("execution exceeded %s", timeout),
		}
	}

	exitedNonZero := runErr != nil
	stderrEmpty := len(bytes.TrimSpace(stderr)) == 0

	if !exitedNonZero && stderrEmpty {
		var result Result
		if err := json.Unmarshal(stdout, &result); err != nil {
			return &Result{
				Success: false,
				Console: []ConsoleEntry{},
				Error:   "Invalid output format",
			}
		}
		if result.Console == nil {
			result.Console = []ConsoleEntry{}
		}
		return &result
	}

	if !stderrEmpty {
		var result Result
		if err := json.Unmarshal(bytes.TrimSpace(stderr), &result); err == nil {
			if result.Console == nil {
				result.Console = []ConsoleEntry{}
			}
			return &result
		}
		return &Result{
			Success: false,
			Console: []ConsoleEntry{},
			Error:   strings.TrimSpace(string(stderr)),
		}
	}

	return &Result{
		Success: false,
		Console: []ConsoleEntry{},
		Error:   "Unknown execution error",
	}
}

// ScrubStack rewrites an error stack trace so it carries no
// server-local filesystem detail: workspace-relative frames have the
// workspace prefix stripped, dependency-tree frames are trimmed back
// to node_modules, wrapper-internal frames collapse to a single
// placeholder, and anything else is dropped.
func ScrubStack(stack, workspaceDir string) string {
	if stack == "" {
		return ""
	}

	lines := strings.Split(stack, "\n")
	if len(lines) == 0 {
		return stack
	}

	if abs, err := filepath.Abs(workspaceDir); err == nil {
		workspaceDir = abs
	}

	out := []string{lines[0]}
	collapsedWrapper := false

	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(trimmed, "/node_modules/"):
			idx := strings.Index(trimmed, "/node_modules/")
			out = append(out, trimmed[idx:])
		case strings.Contains(trimmed, WrapperFile):
			if !collapsedWrapper {
				out = append(out, "at [code]")
				collapsedWrapper = true
			}
		case strings.Contains(trimmed, workspaceDir):
			out = append(out, strings.ReplaceAll(trimmed, workspaceDir, "."))
		default:
			// dropped: neither workspace, dependency, nor wrapper frame
		}
	}

	return strings.Join(out, "\n")
}
