package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/uv-feed-service/internal/adapter/http"
	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/refresh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockViews struct {
	state refresh.ViewState
}

func (m *mockViews) State() refresh.ViewState { return m.state }

type mockTimeline struct {
	families []refresh.Family
}

func (m *mockTimeline) Entry(_ context.Context, family refresh.Family) refresh.TimelineEntry {
	m.families = append(m.families, family)
	return refresh.TimelineEntry{
		Family:    family,
		Locations: []refresh.Card{refresh.NewCard(domain.Reading{LocationName: "Sydney", Index: 11})},
	}
}

var lastUpdate = time.Date(2024, time.January, 1, 1, 0, 0, 0, time.UTC)

func newTestServer(readyErr error) (*httpadapter.Server, *mockViews, *mockTimeline) {
	views := &mockViews{state: refresh.ViewState{Locations: []domain.Reading{}}}
	timeline := &mockTimeline{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, views, timeline, logger), views, timeline
}

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _, _ := newTestServer(fmt.Errorf("no successful ingestion yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no successful ingestion yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReadingsAnnotatesCategories(t *testing.T) {
	srv, views, _ := newTestServer(nil)
	views.state = refresh.ViewState{
		Locations: []domain.Reading{
			{ID: "syd", LocationName: "Sydney", Index: 7.5, FullTime: "2024-01-01T12:00:00"},
			{ID: "hob", LocationName: "Hobart", Index: 1.2, FullTime: "2024-01-01T12:00:00"},
		},
		LastUpdate:   lastUpdate,
		ErrorMessage: "Failed to fetch UV data: offline",
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Locations    []refresh.Card `json:"locations"`
		LastUpdate   time.Time      `json:"lastUpdate"`
		ErrorMessage string         `json:"errorMessage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Locations, 2)
	assert.Equal(t, "Sydney", body.Locations[0].LocationName)
	assert.Equal(t, domain.CategoryHigh, body.Locations[0].Category)
	assert.Equal(t, "High", body.Locations[0].Label)
	assert.Equal(t, "orange", body.Locations[0].Color)
	assert.Equal(t, domain.CategoryLow, body.Locations[1].Category)
	assert.Equal(t, lastUpdate, body.LastUpdate)
	assert.Equal(t, "Failed to fetch UV data: offline", body.ErrorMessage)
}

func TestReadingsBeforeFirstFetch(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"locations":[],"loading":false}`, rec.Body.String())
}

func TestTimelineDefaultsToSmall(t *testing.T) {
	srv, _, timeline := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []refresh.Family{refresh.FamilySmall}, timeline.families)

	var entry refresh.TimelineEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Len(t, entry.Locations, 1)
	assert.Equal(t, domain.CategoryExtreme, entry.Locations[0].Category)
}

func TestTimelineFamilyParam(t *testing.T) {
	srv, _, timeline := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline?family=large", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []refresh.Family{refresh.FamilyLarge}, timeline.families)
}

func TestTimelineRejectsUnknownFamily(t *testing.T) {
	srv, _, timeline := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline?family=huge", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, timeline.families)
}
