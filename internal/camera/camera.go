// Package camera abstracts the capture device. Exactly one component may
// hold the device at a time; opening a held device fails fast instead of
// silently stealing the resource from the current owner.
package camera

import (
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
)

// deviceGuard tracks which device indexes are currently held within this
// process. The capture backend gives no cross-handle exclusion, so the
// single-owner invariant is enforced here.
var deviceGuard = struct {
	sync.Mutex
	held map[int]string
}{held: make(map[int]string)}

// Source is an open capture device. Not safe for concurrent use; frame
// acquisition runs synchronously inside the owner's poll loop.
type Source struct {
	index     int
	owner     string
	capture   *gocv.VideoCapture
	readFails int
	log       *slog.Logger
	closeOnce sync.Once
}

// Open acquires the configured camera for the named owner. Returns
// ErrCameraBusy when another owner already holds the device.
func Open(settings *conf.CameraSettings, owner string) (*Source, error) {
	deviceGuard.Lock()
	if holder, busy := deviceGuard.held[settings.Index]; busy {
		deviceGuard.Unlock()
		return nil, errors.New(errors.ErrCameraBusy).
			Component("camera").
			Category(errors.CategoryCamera).
			Context("index", settings.Index).
			Context("held_by", holder).
			Build()
	}
	deviceGuard.held[settings.Index] = owner
	deviceGuard.Unlock()

	capture, err := gocv.OpenVideoCapture(settings.Index)
	if err != nil {
		release(settings.Index)
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCamera).
			Context("index", settings.Index).
			Build()
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))
	if settings.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(settings.FPS))
	}

	src := &Source{
		index:   settings.Index,
		owner:   owner,
		capture: capture,
		log:     logging.ForService("camera"),
	}
	src.log.Info("camera acquired",
		"index", settings.Index, "owner", owner,
		"width", settings.Width, "height", settings.Height)
	return src, nil
}

func release(index int) {
	deviceGuard.Lock()
	delete(deviceGuard.held, index)
	deviceGuard.Unlock()
}

// Read captures one frame into dst. A failed read is logged and counted
// but is not fatal; the caller skips the frame and retries on its next
// poll. ConsecutiveFailures exposes the count for status reporting.
func (s *Source) Read(dst *gocv.Mat) bool {
	if ok := s.capture.Read(dst); !ok || dst.Empty() {
		s.readFails++
		s.log.Warn("camera read failed", "index", s.index, "consecutive", s.readFails)
		return false
	}
	s.readFails = 0
	return true
}

// ConsecutiveFailures returns the number of failed reads since the last
// successful one.
func (s *Source) ConsecutiveFailures() int {
	return s.readFails
}

// Close releases the device and the ownership guard. Safe to call more
// than once, on every exit path.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.capture.Close()
		release(s.index)
		s.log.Info("camera released", "index", s.index, "owner", s.owner)
	})
	return err
}
