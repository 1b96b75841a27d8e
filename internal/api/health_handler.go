package api

import (
	"fmt"
	"net/http"
)

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Auth           string `json:"auth"`
	DefaultTimeout string `json:"defaultTimeout"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	auth := "disabled"
	if s.cfg.SecretKey != "" {
		auth = "enabled"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Version:        s.version,
		Auth:           auth,
		DefaultTimeout: fmt.Sprintf("%dms", s.cfg.DefaultTimeoutMs),
	})
}

type verifyAuthResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Authenticated bool   `json:"authenticated"`
}

func (s *Server) handleVerifyAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, verifyAuthResponse{
		Success:       true,
		Message:       "Authentication successful",
		Authenticated: true,
	})
}
