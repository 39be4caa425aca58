// Package observability provides Prometheus metrics for the recognition
// and attendance workflows.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Session  *SessionMetrics
}

// NewMetrics creates a new instance of Metrics with all collectors
// registered on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	sessionMetrics, err := NewSessionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create session metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Session:  sessionMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint on the given mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// SessionMetrics contains Prometheus metrics for the live recognition
// session.
type SessionMetrics struct {
	framesTotal       prometheus.Counter
	cameraReadErrors  prometheus.Counter
	facesDetected     prometheus.Counter
	detectionsDropped prometheus.Counter
	verdictsTotal     *prometheus.CounterVec
	marksTotal        *prometheus.CounterVec
	predictDistance   prometheus.Histogram
}

// NewSessionMetrics creates and registers the session collectors.
func NewSessionMetrics(registry *prometheus.Registry) (*SessionMetrics, error) {
	m := &SessionMetrics{
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_frames_processed_total",
			Help: "Total number of camera frames processed",
		}),
		cameraReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_camera_read_failures_total",
			Help: "Total number of failed camera frame reads",
		}),
		facesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_faces_detected_total",
			Help: "Total number of face regions passing the geometric filter",
		}),
		detectionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_detections_filtered_total",
			Help: "Total number of face candidates rejected by the geometric filter",
		}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_verdicts_total",
			Help: "Total number of recognition verdicts by outcome",
		}, []string{"verdict"}),
		marksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_attendance_marks_total",
			Help: "Total number of attendance mark attempts by status",
		}, []string{"status"}), // status: new, duplicate, error
		predictDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_predict_distance",
			Help:    "Distribution of recognizer distances, lower is a closer match",
			Buckets: prometheus.LinearBuckets(0, 20, 10),
		}),
	}

	collectors := []prometheus.Collector{
		m.framesTotal,
		m.cameraReadErrors,
		m.facesDetected,
		m.detectionsDropped,
		m.verdictsTotal,
		m.marksTotal,
		m.predictDistance,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register session collector: %w", err)
		}
	}
	return m, nil
}

// IncFrames records one processed camera frame.
func (m *SessionMetrics) IncFrames() {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
}

// IncCameraReadErrors records one failed frame read.
func (m *SessionMetrics) IncCameraReadErrors() {
	if m == nil {
		return
	}
	m.cameraReadErrors.Inc()
}

// AddDetections records detector output for one frame: candidates that
// survived the geometric filter and those it dropped.
func (m *SessionMetrics) AddDetections(kept, dropped int) {
	if m == nil {
		return
	}
	m.facesDetected.Add(float64(kept))
	m.detectionsDropped.Add(float64(dropped))
}

// RecordVerdict records one recognition outcome and its distance.
func (m *SessionMetrics) RecordVerdict(verdict string, distance float64) {
	if m == nil {
		return
	}
	m.verdictsTotal.WithLabelValues(verdict).Inc()
	m.predictDistance.Observe(distance)
}

// RecordMark records one attendance write attempt.
func (m *SessionMetrics) RecordMark(status string) {
	if m == nil {
		return
	}
	m.marksTotal.WithLabelValues(status).Inc()
}
