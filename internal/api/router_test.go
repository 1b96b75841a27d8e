package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/codecell/internal/config"
	"github.com/kestrel-run/codecell/internal/orchestrator"
)

func testServer(t *testing.T, secretKey string) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ExecutionDir:                filepath.Join(root, "executions"),
		CacheDir:                    filepath.Join(root, "cache"),
		SecretKey:                   secretKey,
		DefaultTimeoutMs:            5000,
		CacheSizeLimit:              "1GB",
		ExecutionsDataPruneMaxCount: 0,
	}
	orc := orchestrator.New(cfg, nil)
	return NewServer(cfg, orc, "test", nil)
}

func TestHealth_AuthDisabled(t *testing.T) {
	s := testServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "disabled", body.Auth)
	assert.Equal(t, "5000ms", body.DefaultTimeout)
}

func TestHealth_Unauthenticated_StillReachable(t *testing.T) {
	s := testServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "enabled", body.Auth)
}

func TestVerifyAuth_MissingHeader(t *testing.T) {
	s := testServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/verify-auth", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyAuth_WrongToken(t *testing.T) {
	s := testServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/verify-auth", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerifyAuth_CorrectToken(t *testing.T) {
	s := testServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/verify-auth", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body verifyAuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Authenticated)
}

func TestExecute_MissingCode(t *testing.T) {
	s := testServer(t, "")
	payload := `{"cacheKey":"k1"}`
	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
}

func TestExecute_MissingCacheKey(t *testing.T) {
	s := testServer(t, "")
	payload := `{"code":"module.exports = x => x;"}`
	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecute_RequiresBearerToken(t *testing.T) {
	s := testServer(t, "secret")
	payload := `{"code":"module.exports = x => x;","cacheKey":"k1"}`
	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
