package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyStore struct{}

func (emptyStore) ListDatasetRuns(context.Context, int, int) ([]models.DatasetRun, error) {
	return nil, nil
}
func (emptyStore) GetDatasetRun(context.Context, int64) (*models.DatasetRun, error) {
	return nil, nil
}
func (emptyStore) ListRunItems(context.Context, int64) ([]models.RunItem, error) {
	return nil, nil
}
func (emptyStore) ListRunItemScores(context.Context, int64) ([]models.Score, error) {
	return nil, nil
}
func (emptyStore) ListScores(context.Context, models.OwnerType, int64) ([]models.Score, error) {
	return nil, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return New(Config{Store: emptyStore{}}).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRoutesAreMounted(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
