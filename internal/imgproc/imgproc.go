// Package imgproc converts located face regions into the canonical form
// the recognizer is trained on: single channel, fixed size, locally
// contrast enhanced.
package imgproc

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/errors"
)

const (
	// DefaultCLAHEClipLimit bounds per-tile contrast amplification.
	DefaultCLAHEClipLimit = 2.0
	// DefaultCLAHETileSize is the adaptive equalization grid side.
	DefaultCLAHETileSize = 8
)

// Normalizer produces canonical face images. It owns a CLAHE instance
// and is not safe for concurrent use; the recognition loop runs on a
// single goroutine.
type Normalizer struct {
	size  image.Point
	clahe gocv.CLAHE
}

// NewNormalizer creates a Normalizer producing size×size output.
func NewNormalizer(size int) *Normalizer {
	return &Normalizer{
		size:  image.Pt(size, size),
		clahe: gocv.NewCLAHEWithParams(DefaultCLAHEClipLimit, image.Pt(DefaultCLAHETileSize, DefaultCLAHETileSize)),
	}
}

// Size returns the canonical output side length in pixels.
func (n *Normalizer) Size() int {
	return n.size.X
}

// Normalize converts src into the canonical representation. The pipeline
// order is fixed: grayscale, then resize, then adaptive equalization.
// Resizing before equalization keeps the tile parameters independent of
// input size; equalizing after the grayscale conversion avoids color
// channel artifacts. The caller owns the returned Mat.
func (n *Normalizer) Normalize(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.Newf("cannot normalize an empty image").
			Component("imgproc").
			Category(errors.CategoryImageProcessing).
			Build()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() > 1 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, n.size, 0, 0, gocv.InterpolationArea)

	enhanced := gocv.NewMat()
	n.clahe.Apply(resized, &enhanced)
	return enhanced, nil
}

// Close releases the CLAHE instance.
func (n *Normalizer) Close() error {
	return n.clahe.Close()
}

// LoadGrayscale reads an image file as a single-channel image.
func LoadGrayscale(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return img, errors.Newf("unreadable image file: %s", path).
			Component("imgproc").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return img, nil
}

// SaveImage writes an image to path, reporting failure as an error
// rather than the bare bool the encoder returns.
func SaveImage(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return errors.Newf("failed to write image: %s", path).
			Component("imgproc").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
