// Package recognizer implements the texture-histogram identity model: an
// LBPH appearance classifier plus the label to registration-number map
// that makes its integer labels meaningful.
package recognizer

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
)

// Model is the LBPH identity classifier. It starts untrained; Train or
// Load transitions it to trained, after which Update, Predict and Save
// are valid. A Train discards any previous trained state.
//
// The model handle is guarded for the one concurrent pattern the system
// needs: a recognition session predicting while a retrain builds a new
// Model elsewhere and swaps it in on success.
type Model struct {
	mu      sync.RWMutex
	rec     *contrib.LBPHFaceRecognizer
	labels  LabelMap
	trained bool
	policy  Policy
	log     *slog.Logger
}

// New creates an untrained model from recognizer settings.
func New(settings *conf.RecognizerSettings) *Model {
	rec := contrib.NewLBPHFaceRecognizer()
	if settings.Radius > 0 {
		rec.SetRadius(settings.Radius)
	}
	if settings.Neighbors > 0 {
		rec.SetNeighbors(settings.Neighbors)
	}

	return &Model{
		rec: rec,
		policy: Policy{
			Threshold:   settings.Threshold,
			LenientBand: settings.LenientBand,
		},
		log: logging.ForService("recognizer"),
	}
}

// Policy returns the decision policy the model was configured with.
func (m *Model) Policy() Policy {
	return m.policy
}

// Trained reports whether the model can predict.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// LabelMap returns a copy of the current label map.
func (m *Model) LabelMap() LabelMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(LabelMap, len(m.labels))
	for k, v := range m.labels {
		out[k] = v
	}
	return out
}

// Train builds the classifier state from scratch. samples and labels
// must be non-empty and of equal length; every sample must share the
// spatial dimensions the normalizer produces. keys, when its length
// equals the distinct label count, names each label's identity in label
// order: keys[i] is the identity assigned label i.
func (m *Model) Train(samples []gocv.Mat, labels []int, keys []string) error {
	if len(samples) == 0 || len(labels) == 0 {
		return errors.Newf("no training data provided").
			Component("recognizer").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(samples) != len(labels) {
		return errors.Newf("sample count %d does not match label count %d", len(samples), len(labels)).
			Component("recognizer").
			Category(errors.CategoryValidation).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec.Train(samples, labels)
	m.labels = BuildLabelMap(labels, keys)
	m.trained = true

	m.log.Info("training completed",
		"images", len(samples), "identities", len(m.labels))
	return nil
}

// Update adds samples to an already-trained model without discarding the
// learned statistics. New labels map to themselves unless already named.
func (m *Model) Update(samples []gocv.Mat, labels []int) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return errors.Newf("invalid incremental data: %d samples, %d labels", len(samples), len(labels)).
			Component("recognizer").
			Category(errors.CategoryValidation).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.trained {
		return errors.New(errors.ErrNotTrained).
			Component("recognizer").
			Category(errors.CategoryModelState).
			Context("operation", "update").
			Build()
	}

	m.rec.Update(samples, labels)
	for _, l := range labels {
		if _, ok := m.labels[l]; !ok {
			m.labels[l] = m.labels.Lookup(l)
		}
	}
	m.log.Info("model updated", "images", len(samples))
	return nil
}

// Predict classifies one normalized face image. It returns the matched
// registration number and the raw distance, where lower is better. When
// the distance reaches the policy's rejection bound the identity is
// empty but the distance is still returned for diagnostics.
func (m *Model) Predict(face gocv.Mat) (string, float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return "", 0, errors.New(errors.ErrNotTrained).
			Component("recognizer").
			Category(errors.CategoryModelState).
			Context("operation", "predict").
			Build()
	}

	resp := m.rec.PredictExtendedResponse(face)
	distance := float64(resp.Confidence)

	if resp.Label < 0 || distance >= m.policy.RejectDistance() {
		return "", distance, nil
	}
	return m.labels.Lookup(int(resp.Label)), distance, nil
}

// Save serializes the trained state to path and the label map to the
// derived co-artifact path, each written to a temp file and renamed so a
// crash mid-save cannot pair a model with a stale label map.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return errors.New(errors.ErrNotTrained).
			Component("recognizer").
			Category(errors.CategoryModelState).
			Context("operation", "save").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryModelSave).
			Context("path", path).
			Build()
	}

	tmpModel := path + ".tmp"
	m.rec.SaveFile(tmpModel)
	if info, err := os.Stat(tmpModel); err != nil || info.Size() == 0 {
		return errors.Newf("classifier state was not written to %s", tmpModel).
			Component("recognizer").
			Category(errors.CategoryModelSave).
			Context("path", tmpModel).
			Build()
	}

	if err := m.labels.Save(LabelMapPath(path)); err != nil {
		_ = os.Remove(tmpModel)
		return err
	}

	if err := os.Rename(tmpModel, path); err != nil {
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryModelSave).
			Context("path", path).
			Build()
	}

	m.log.Info("model saved", "path", path)
	return nil
}

// Load is the inverse of Save. A missing label-map artifact degrades to
// identity labels with a warning; the model stays usable for distance
// computation. A missing model file fails and leaves the state as it
// was.
func (m *Model) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryModelLoad).
			Context("path", path).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec.LoadFile(path)

	labelPath := LabelMapPath(path)
	labels, err := LoadLabelMap(labelPath)
	if err != nil {
		m.log.Warn("label map missing or unreadable, using identity labels",
			"path", labelPath, "error", err)
		labels = LabelMap{}
	}

	m.labels = labels
	m.trained = true
	m.log.Info("model loaded", "path", path, "identities", len(labels))
	return nil
}
