package preview

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_ServeAfterShutdownReturnsUnavailable(t *testing.T) {
	hub := NewReloadHub(discardLogger())
	hub.Shutdown()

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHub_BroadcastIgnoresRepeatedPassID(t *testing.T) {
	hub := NewReloadHub(discardLogger())

	hub.Broadcast("pass-1")
	hub.Broadcast("pass-1") // no-op; lastPass unchanged
	hub.Broadcast("")       // no-op

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	require.Equal(t, "pass-1", hub.lastPass)
}

func TestHub_ShutdownIsIdempotent(t *testing.T) {
	hub := NewReloadHub(discardLogger())
	hub.Shutdown()
	hub.Shutdown()
	require.Equal(t, 0, hub.ClientCount())
}

func TestServer_HandlerRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>hi</html>"), 0o644))

	s := NewServer(dir, discardLogger())
	handler := s.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "EventSource")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hi")
}

func TestServer_MetricsRouteOnlyWhenConfigured(t *testing.T) {
	dir := t.TempDir()

	without := NewServer(dir, discardLogger())
	rec := httptest.NewRecorder()
	without.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	with := NewServer(dir, discardLogger(), WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rec = httptest.NewRecorder()
	with.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
