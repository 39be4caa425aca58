// Package session runs a live recognition session: it polls the camera,
// finds the dominant face in each frame, asks the identity model who it
// is and marks accepted identities present exactly once.
package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/detect"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
	"github.com/dkorir/faceattend-go/internal/notify"
	"github.com/dkorir/faceattend-go/internal/observability"
	"github.com/dkorir/faceattend-go/internal/recognizer"
)

// eventBufferSize bounds the event channel. A slow or absent consumer
// drops events; the session loop never blocks on display.
const eventBufferSize = 64

// extractMargin widens the detected region slightly before extraction so
// the crop keeps chin and hairline context.
const extractMargin = 10

// FrameSource produces camera frames. Satisfied by *camera.Source.
type FrameSource interface {
	Read(dst *gocv.Mat) bool
	ConsecutiveFailures() int
	Close() error
}

// FaceLocator finds and crops face regions. Satisfied by *detect.Detector.
type FaceLocator interface {
	ScanFrame(img gocv.Mat) detect.Scan
	Extract(img gocv.Mat, region image.Rectangle, margin int) gocv.Mat
}

// Normalizer converts crops to the canonical model input form.
// Satisfied by *imgproc.Normalizer.
type Normalizer interface {
	Normalize(src gocv.Mat) (gocv.Mat, error)
}

// Predictor is the slice of the identity model the session consumes.
// Satisfied by *recognizer.Model.
type Predictor interface {
	Trained() bool
	Policy() recognizer.Policy
	Predict(face gocv.Mat) (string, float64, error)
}

// AttendanceStore is the slice of the datastore the session writes to.
type AttendanceStore interface {
	OpenSession(courseCode, sessionKey string) (*datastore.ClassSession, error)
	MarkPresent(registration, sessionKey string, confidence float64) (bool, error)
	CloseSession(sessionKey string) error
}

// EventKind classifies a session event.
type EventKind int

const (
	// EventMarked reports an identity newly marked present.
	EventMarked EventKind = iota
	// EventAlreadyMarked reports a recognized identity seen again.
	EventAlreadyMarked
	// EventUncertain reports a face the model could not commit to.
	EventUncertain
	// EventUnknown reports a face beyond the rejection distance.
	EventUnknown
	// EventCameraTrouble reports failed frame reads.
	EventCameraTrouble
	// EventWriteFailed reports a recognized identity whose attendance
	// write failed. The recognition was sound; the store was not.
	EventWriteFailed
)

// Event is one observation from the live loop, published for display.
type Event struct {
	Time         time.Time
	Kind         EventKind
	Registration string
	Distance     float64
	Confidence   float64
	Verdict      recognizer.Verdict
	Region       image.Rectangle
}

// Summary describes a finished session.
type Summary struct {
	SessionKey  string
	CourseCode  string
	Started     time.Time
	Ended       time.Time
	Frames      int
	MarkedCount int
}

// Session is a single live attendance run. Create with New, drive with
// Run, consume Events concurrently if display is wanted.
type Session struct {
	settings *conf.Settings
	source   FrameSource
	locator  FaceLocator
	norm     Normalizer
	model    Predictor
	store    AttendanceStore
	metrics  *observability.SessionMetrics
	notifier *notify.Sender

	courseCode string
	sessionKey string
	// runID correlates one process's log lines for a session key that
	// may be reopened across restarts.
	runID string

	// seen gates attendance writes in memory. The database unique
	// index is the durable guarantee; this avoids hammering it on
	// every frame a marked student stays in view.
	seen   map[string]struct{}
	marked int
	frames int
	events chan Event
	log    *slog.Logger
}

// New assembles a Session. All collaborators are injected.
func New(settings *conf.Settings, courseCode, sessionKey string,
	source FrameSource, locator FaceLocator, norm Normalizer,
	model Predictor, store AttendanceStore,
	metrics *observability.SessionMetrics, notifier *notify.Sender) (*Session, error) {
	if !model.Trained() {
		return nil, errors.New(errors.ErrNotTrained).
			Component("session").
			Category(errors.CategoryModelState).
			Build()
	}
	return &Session{
		settings:   settings,
		source:     source,
		locator:    locator,
		norm:       norm,
		model:      model,
		store:      store,
		metrics:    metrics,
		notifier:   notifier,
		courseCode: courseCode,
		sessionKey: sessionKey,
		runID:      uuid.NewString(),
		seen:       make(map[string]struct{}),
		events:     make(chan Event, eventBufferSize),
		log:        logging.ForService("session"),
	}, nil
}

// Events returns the stream of session observations. Closed when Run
// returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run executes the poll loop until ctx is canceled or the camera is
// declared lost. Cancellation is the normal way to end a session; it
// closes the class session and returns a Summary with no error.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		SessionKey: s.sessionKey,
		CourseCode: s.courseCode,
		Started:    time.Now(),
	}

	if _, err := s.store.OpenSession(s.courseCode, s.sessionKey); err != nil {
		close(s.events)
		return summary, err
	}
	s.log.Info("session started",
		"course", s.courseCode, "session", s.sessionKey, "run_id", s.runID)

	interval := time.Duration(s.settings.Camera.PollMs) * time.Millisecond
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := gocv.NewMat()
	defer frame.Close()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if err := s.processFrame(&frame); err != nil {
				runErr = err
				break loop
			}
		}
	}

	summary.Frames = s.frames
	summary.MarkedCount = s.marked
	summary.Ended = time.Now()
	s.finish(summary)
	return summary, runErr
}

func (s *Session) finish(summary Summary) {
	close(s.events)
	if err := s.store.CloseSession(s.sessionKey); err != nil {
		s.log.Error("failed to close class session",
			"session", s.sessionKey, "error", err)
	}
	s.log.Info("session ended",
		"session", s.sessionKey,
		"run_id", s.runID,
		"frames", summary.Frames,
		"marked", summary.MarkedCount,
		"duration", summary.Ended.Sub(summary.Started))

	title := fmt.Sprintf("Attendance closed: %s", s.courseCode)
	message := fmt.Sprintf("%d students marked present in session %s (%d frames, %s)",
		summary.MarkedCount, s.sessionKey, summary.Frames,
		summary.Ended.Sub(summary.Started).Round(time.Second))
	if err := s.notifier.Send(context.Background(), title, message); err != nil {
		s.log.Warn("session summary notification failed", "error", err)
	}
}

// processFrame handles one poll tick. Only sustained camera loss is
// fatal; every per-frame problem is recovered by skipping the frame.
func (s *Session) processFrame(frame *gocv.Mat) error {
	if ok := s.source.Read(frame); !ok {
		s.metrics.IncCameraReadErrors()
		fails := s.source.ConsecutiveFailures()
		s.publish(Event{Time: time.Now(), Kind: EventCameraTrouble})
		if s.settings.Camera.MaxReadFails > 0 && fails >= s.settings.Camera.MaxReadFails {
			return errors.Newf("camera lost after %d consecutive failed reads", fails).
				Component("session").
				Category(errors.CategoryCamera).
				Context("index", s.settings.Camera.Index).
				Build()
		}
		return nil
	}

	s.frames++
	s.metrics.IncFrames()

	scan := s.locator.ScanFrame(*frame)
	s.metrics.AddDetections(len(scan.Regions), scan.Dropped)
	region, found := detect.Largest(scan.Regions)
	if !found {
		return nil
	}

	face := s.locator.Extract(*frame, region, extractMargin)
	defer face.Close()

	normalized, err := s.norm.Normalize(face)
	if err != nil {
		s.log.Warn("frame normalization failed", "error", err)
		return nil
	}
	defer normalized.Close()

	registration, distance, err := s.model.Predict(normalized)
	if err != nil {
		s.log.Warn("prediction failed", "error", err)
		return nil
	}

	policy := s.model.Policy()
	verdict := policy.Decide(distance)
	s.metrics.RecordVerdict(verdict.String(), distance)

	event := Event{
		Time:         time.Now(),
		Registration: registration,
		Distance:     distance,
		Confidence:   policy.ConfidencePercent(distance),
		Verdict:      verdict,
		Region:       region,
	}

	switch {
	case policy.Accepted(verdict):
		event.Kind = s.mark(registration, event.Confidence)
	case verdict == recognizer.VerdictUncertain:
		event.Kind = EventUncertain
	default:
		event.Kind = EventUnknown
	}
	s.publish(event)
	return nil
}

// mark records the identity once per session. Reports whether this
// sighting was the first.
func (s *Session) mark(registration string, confidence float64) EventKind {
	if _, dup := s.seen[registration]; dup {
		return EventAlreadyMarked
	}

	newly, err := s.store.MarkPresent(registration, s.sessionKey, confidence)
	if err != nil {
		s.metrics.RecordMark("error")
		s.log.Error("attendance write failed",
			"registration", registration, "session", s.sessionKey, "error", err)
		// Not added to seen; the next sighting retries the write.
		return EventWriteFailed
	}

	s.seen[registration] = struct{}{}
	if !newly {
		// Another process already marked this student; mirror it
		// locally so we stop retrying.
		s.metrics.RecordMark("duplicate")
		return EventAlreadyMarked
	}

	s.marked++
	s.metrics.RecordMark("new")
	s.log.Info("student marked present",
		"registration", registration,
		"session", s.sessionKey,
		"confidence", confidence)
	return EventMarked
}

// publish sends an event without ever blocking the loop.
func (s *Session) publish(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
