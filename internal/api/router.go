package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kestrel-run/codecell/internal/config"
	"github.com/kestrel-run/codecell/internal/orchestrator"
)

type Server struct {
	cfg          *config.Config
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
	mux          *http.ServeMux
	version      string
}

func NewServer(cfg *config.Config, orc *orchestrator.Orchestrator, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:          cfg,
		orchestrator: orc,
		logger:       logger,
		mux:          http.NewServeMux(),
		version:      version,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.authMiddleware(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /execute", s.handleExecute)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /verify-auth", s.handleVerifyAuth)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
