package api

import (
	"net/http"

	"github.com/kestrel-run/codecell/internal/orchestrator"
)

type executeOptions struct {
	Timeout     int  `json:"timeout"`
	ForceUpdate bool `json:"forceUpdate"`
	Debug       bool `json:"debug"`
}

type executeRequest struct {
	Code     string         `json:"code"`
	Items    any            `json:"items"`
	CacheKey string         `json:"cacheKey"`
	Options  executeOptions `json:"options"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if req.Items == nil {
		req.Items = []any{}
	}

	orcReq := orchestrator.Request{
		Code:     req.Code,
		Items:    req.Items,
		CacheKey: req.CacheKey,
		Options: orchestrator.Options{
			TimeoutMs:   req.Options.Timeout,
			ForceUpdate: req.Options.ForceUpdate,
			Debug:       req.Options.Debug,
		},
	}

	resp, err := s.orchestrator.Execute(r.Context(), orcReq)
	if err != nil {
		s.logger.Error("execute", "cacheKey", req.CacheKey, "error", err)
		writeOrchestratorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
