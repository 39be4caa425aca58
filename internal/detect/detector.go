// Package detect locates candidate face regions in camera frames using a
// multi-scale cascade classifier and a mandatory geometric post-filter.
package detect

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
)

// Params are the per-call tunables of the sliding-window detector. Zero
// values fall back to the detector's configured defaults.
type Params struct {
	ScaleFactor  float64 // pyramid step factor, > 1.0
	MinNeighbors int     // minimum neighbor agreement count
	MinSize      int     // minimum window side in pixels
}

// Detector finds face regions in single frames. Any detector satisfying
// the Locate contract is acceptable; this implementation wraps an OpenCV
// cascade classifier. Not safe for concurrent use.
type Detector struct {
	classifier gocv.CascadeClassifier
	defaults   Params
	filter     GeometricFilter
	log        *slog.Logger
}

// New loads the cascade resource and returns a ready Detector.
func New(settings *conf.DetectorSettings) (*Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if ok := classifier.Load(settings.CascadePath); !ok {
		_ = classifier.Close()
		return nil, errors.Newf("failed to load cascade classifier from %s", settings.CascadePath).
			Component("detect").
			Category(errors.CategoryCascade).
			Context("path", settings.CascadePath).
			Build()
	}

	return &Detector{
		classifier: classifier,
		defaults: Params{
			ScaleFactor:  settings.ScaleFactor,
			MinNeighbors: settings.MinNeighbors,
			MinSize:      settings.MinSize,
		},
		filter: GeometricFilter{
			MinAspect: settings.Filter.MinAspect,
			MaxAspect: settings.Filter.MaxAspect,
			MinSide:   settings.Filter.MinSide,
			MaxSide:   settings.Filter.MaxSide,
		},
		log: logging.ForService("detect"),
	}, nil
}

// Scan is one frame's detection outcome: the regions that passed the
// geometric filter and the count of candidates it rejected.
type Scan struct {
	Regions []image.Rectangle
	Dropped int
}

// Locate returns the face regions found in img after geometric
// filtering. Degenerate input yields an empty slice, never an error.
func (d *Detector) Locate(img gocv.Mat) []image.Rectangle {
	return d.ScanFrame(img).Regions
}

// LocateWithParams is Locate with per-call detector overrides.
func (d *Detector) LocateWithParams(img gocv.Mat, p Params) []image.Rectangle {
	return d.ScanFrameWithParams(img, p).Regions
}

// ScanFrame is Locate plus the rejected-candidate count, for callers
// that account for filter behavior.
func (d *Detector) ScanFrame(img gocv.Mat) Scan {
	return d.ScanFrameWithParams(img, Params{})
}

// ScanFrameWithParams is ScanFrame with per-call detector overrides.
func (d *Detector) ScanFrameWithParams(img gocv.Mat, p Params) Scan {
	if img.Empty() {
		return Scan{}
	}

	scale := p.ScaleFactor
	if scale <= 1.0 {
		scale = d.defaults.ScaleFactor
	}
	neighbors := p.MinNeighbors
	if neighbors <= 0 {
		neighbors = d.defaults.MinNeighbors
	}
	minSide := p.MinSize
	if minSide <= 0 {
		minSide = d.defaults.MinSize
	}

	raw := d.classifier.DetectMultiScaleWithParams(
		img,
		scale,
		neighbors,
		0,
		image.Pt(minSide, minSide),
		image.Pt(d.filter.MaxSide, d.filter.MaxSide),
	)

	accepted := d.filter.Apply(raw)
	if len(raw) != len(accepted) {
		d.log.Debug("geometric filter rejected candidates",
			"raw", len(raw), "accepted", len(accepted))
	}
	return Scan{Regions: accepted, Dropped: len(raw) - len(accepted)}
}

// LocateLargest returns the largest face in img, or false when no face
// passes the filter.
func (d *Detector) LocateLargest(img gocv.Mat) (image.Rectangle, bool) {
	return Largest(d.Locate(img))
}

// Extract crops region from img with a symmetric margin, clamped to the
// image bounds. Out-of-bounds margins clamp, they never fail. The caller
// owns the returned Mat.
func (d *Detector) Extract(img gocv.Mat, region image.Rectangle, margin int) gocv.Mat {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	padded := image.Rect(
		region.Min.X-margin,
		region.Min.Y-margin,
		region.Max.X+margin,
		region.Max.Y+margin,
	).Intersect(bounds)

	if padded.Empty() {
		return gocv.NewMat()
	}
	roi := img.Region(padded)
	defer roi.Close()
	return roi.Clone()
}

// Close releases the cascade classifier.
func (d *Detector) Close() error {
	return d.classifier.Close()
}
