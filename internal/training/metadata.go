// training/metadata.go training run metadata artifact
package training

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// Algorithm identifies the appearance model in the metadata artifact.
const Algorithm = "LBPH"

// Metadata describes one completed training run. Written next to the
// model so an operator can tell what the current artifact was built
// from.
type Metadata struct {
	TrainingDate        string  `json:"training_date"`
	NumStudents         int     `json:"num_students"`
	NumImages           int     `json:"num_images"`
	TrainingTimeSeconds float64 `json:"training_time_seconds"`
	Algorithm           string  `json:"algorithm"`
	ImageSize           string  `json:"image_size"`
}

// NewMetadata fills a Metadata for a run that finished now.
func NewMetadata(numStudents, numImages, imageSize int, elapsed time.Duration) Metadata {
	return Metadata{
		TrainingDate:        time.Now().Format(time.RFC3339),
		NumStudents:         numStudents,
		NumImages:           numImages,
		TrainingTimeSeconds: elapsed.Seconds(),
		Algorithm:           Algorithm,
		ImageSize:           fmt.Sprintf("%dx%d", imageSize, imageSize),
	}
}

// Save writes the metadata as indented JSON.
func (m Metadata) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // operator-inspectable artifact
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

// LoadMetadata reads a metadata artifact written by Save.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from settings
	if err != nil {
		return Metadata{}, errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return m, nil
}
