package orchestrator

import "errors"

// Sentinel errors covering the error vocabulary. ErrBadRequest and
// ErrInternal are Go errors returned from Execute and mapped to
// non-200 status by the HTTP layer. Auth failures never reach Execute
// at all — they're rejected by the API's auth middleware before a
// request is ever handed to the orchestrator, so there is no
// ErrUnauthorized/ErrForbidden here. ErrDependencyInstallFailed,
// ErrExecutionFailed, and ErrOutputFormatInvalid name failure kinds
// used for classification and logging only — those results are
// 200-level client responses encoded directly into Response, never
// returned as a Go error.
var (
	ErrBadRequest              = errors.New("bad request")
	ErrDependencyInstallFailed = errors.New("dependency install failed")
	ErrExecutionFailed         = errors.New("execution failed")
	ErrOutputFormatInvalid     = errors.New("invalid output format")
	ErrInternal                = errors.New("internal error")
)
