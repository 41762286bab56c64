package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/datastore"
	"github.com/petwatch/petwatch-go/internal/detection"
	"github.com/petwatch/petwatch-go/internal/monitor"
	"github.com/petwatch/petwatch-go/internal/observability"
)

func newTestServer(t *testing.T) (*Server, *monitor.Monitor) {
	t.Helper()
	settings := &conf.Settings{
		Detection:    conf.DetectionSettings{Confidence: 0.5, PersistenceFrames: 1},
		Notification: conf.NotificationSettings{},
	}
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)
	mon := monitor.New(settings, nil, nil, metrics)
	return New(&conf.WebServerSettings{Port: "0"}, mon, nil, nil, metrics), mon
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatsEndpointReflectsPipeline(t *testing.T) {
	s, mon := newTestServer(t)

	frame := detection.Frame{Events: []detection.Event{{Label: "Miso", Confidence: 0.9}}}
	mon.ProcessFrame(frame, time.Now())

	rec := doRequest(s, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pipeline monitor.Stats `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body.Pipeline.Frames)
	assert.Equal(t, uint64(1), body.Pipeline.Confirmations["miso"])
}

func TestStatsEndpointIncludesLabelTotals(t *testing.T) {
	db, err := datastore.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Open())
	t.Cleanup(func() { _ = db.Close() })

	for i, label := range []string{"miso", "miso", "luna"} {
		require.NoError(t, db.Save(&datastore.NotificationRecord{
			UUID:      "uuid-" + strconv.Itoa(i),
			Kind:      "detection",
			Label:     label,
			Message:   label + " detected",
			CreatedAt: time.Now(),
		}))
	}

	settings := &conf.Settings{
		Detection: conf.DetectionSettings{Confidence: 0.5, PersistenceFrames: 1},
	}
	mon := monitor.New(settings, nil, nil, nil)
	s := New(&conf.WebServerSettings{Port: "0"}, mon, nil, db, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		LabelTotals []datastore.LabelCount `json:"label_totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.LabelTotals, 2)
	assert.Equal(t, "miso", body.LabelTotals[0].Label)
	assert.EqualValues(t, 2, body.LabelTotals[0].Count)
}

func TestNotificationsEndpointValidatesLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/notifications?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/notifications?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/notifications")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, mon := newTestServer(t)
	mon.ProcessFrame(detection.Frame{}, time.Now())

	rec := doRequest(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "petwatch_frames_processed_total")
}
