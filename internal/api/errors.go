package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kestrel-run/codecell/internal/orchestrator"
)

// errorBody is the JSON shape for the two auth failure modes and bad
// requests — {success:false, error}, same envelope shape as a failed
// execution so clients parse one thing.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Success: false, Error: message})
}

// writeOrchestratorError maps a pipeline error to its HTTP status.
// DependencyInstallFailure and ExecutionFailure never reach here — the
// orchestrator encodes those directly into a 200 response body. Auth
// failures are handled entirely in middleware.go before the
// orchestrator is ever called, so this only ever sees a bad request or
// an internal error.
func writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
