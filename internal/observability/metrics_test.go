package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersSessionCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Session)

	m.Session.IncFrames()
	m.Session.AddDetections(1, 2)
	m.Session.RecordVerdict("accept", 32.5)
	m.Session.RecordMark("new")
	m.Session.IncCameraReadErrors()

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "session_frames_processed_total 1")
	assert.Contains(t, body, `session_verdicts_total{verdict="accept"} 1`)
	assert.Contains(t, body, `session_attendance_marks_total{status="new"} 1`)
	assert.Contains(t, body, "session_detections_filtered_total 2")
}

func TestSessionMetricsNilReceiverIsNoOp(t *testing.T) {
	var m *SessionMetrics
	assert.NotPanics(t, func() {
		m.IncFrames()
		m.IncCameraReadErrors()
		m.AddDetections(1, 1)
		m.RecordVerdict("unknown", 120)
		m.RecordMark("error")
	})
}
