package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/recognizer"
)

type fakeTrainer struct {
	trained bool
	labels  []int
	keys    []string
	payload string
	saveErr error
}

func (f *fakeTrainer) Train(samples []gocv.Mat, labels []int, keys []string) error {
	f.trained = true
	f.labels = append([]int(nil), labels...)
	f.keys = append([]string(nil), keys...)
	return nil
}

// Save mirrors the real model writer: a model blob plus its label map
// side file, so the pipeline has both staged artifacts to rename.
func (f *fakeTrainer) Save(path string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if err := os.WriteFile(path, []byte(f.payload), 0o644); err != nil {
		return err
	}
	return os.WriteFile(recognizer.LabelMapPath(path), []byte(`{"0": "x"}`), 0o644)
}

type passNormalizer struct{}

func (passNormalizer) Normalize(src gocv.Mat) (gocv.Mat, error) {
	return src.Clone(), nil
}

type mapResolver map[string]bool

func (m mapResolver) ResolveRegistration(registration string) (bool, error) {
	return m[registration], nil
}

func fakeLoader(t *testing.T) ImageLoader {
	t.Helper()
	return func(path string) (gocv.Mat, error) {
		if filepath.Base(path) == "broken.jpg" {
			return gocv.Mat{}, fmt.Errorf("decode %s: corrupt", path)
		}
		return gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U), nil
	}
}

// writeStudentDir creates a store directory with n trivially valid jpgs.
func writeStudentDir(t *testing.T, facesDir, name string, n int) {
	t.Helper()
	dir := filepath.Join(facesDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img_%02d.jpg", i))
		require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o644))
	}
}

func testPipeline(t *testing.T, trainer *fakeTrainer, resolver mapResolver) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	settings := &conf.TrainingSettings{
		FacesDir:  filepath.Join(root, "faces"),
		ModelsDir: filepath.Join(root, "models"),
		MinImages: 3,
		ImageSize: 200,
	}
	require.NoError(t, os.MkdirAll(settings.FacesDir, 0o755))
	require.NoError(t, os.MkdirAll(settings.ModelsDir, 0o755))
	modelPath := filepath.Join(settings.ModelsDir, "face_model.yml")
	p := NewPipeline(settings, modelPath, trainer, passNormalizer{}, resolver, fakeLoader(t))
	return p, modelPath
}

func TestPipelineTrainsAndPersists(t *testing.T) {
	trainer := &fakeTrainer{payload: "model-v1"}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true}
	p, modelPath := testPipeline(t, trainer, resolver)

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 4)
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, result.SampleCount)
	assert.Equal(t, 2, result.IdentityCount)
	assert.Empty(t, result.SkippedDirs)
	assert.Empty(t, result.SkippedIdentities)

	// Labels are dense and assigned in directory-name order.
	assert.Equal(t, []string{"A01/2024", "B02/2023"}, trainer.keys)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1}, trainer.labels)

	blob, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Equal(t, "model-v1", string(blob))

	_, err = os.Stat(recognizer.LabelMapPath(modelPath))
	assert.NoError(t, err)

	meta, err := LoadMetadata(filepath.Join(p.Settings.ModelsDir, "training_metadata.json"))
	require.NoError(t, err)
	assert.Equal(t, 2, meta.NumStudents)
	assert.Equal(t, 7, meta.NumImages)
	assert.Equal(t, "200x200", meta.ImageSize)

	backups, err := filepath.Glob(filepath.Join(p.Settings.ModelsDir, "backups", "model_*.yml"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	backup, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "model-v1", string(backup))
}

func TestPipelineExcludesUnderSampledStudents(t *testing.T) {
	trainer := &fakeTrainer{payload: "model"}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true, "C03/2022": true}
	p, _ := testPipeline(t, trainer, resolver)

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 3)
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 2) // below the floor
	writeStudentDir(t, p.Settings.FacesDir, "C03-2022", 5)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B02/2023"}, result.SkippedIdentities)
	assert.Equal(t, []string{"A01/2024", "C03/2022"}, trainer.keys)
	// Label numbering stays dense after the exclusion.
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 1, 1}, trainer.labels)
}

func TestPipelineCountsOnlyReadableImages(t *testing.T) {
	trainer := &fakeTrainer{payload: "model"}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true}
	p, _ := testPipeline(t, trainer, resolver)

	// Three files on disk but one is unreadable, leaving the student
	// below the minimum.
	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 2)
	brokenPath := filepath.Join(p.Settings.FacesDir, "A01-2024", "broken.jpg")
	require.NoError(t, os.WriteFile(brokenPath, []byte("x"), 0o644))
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 3)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientIdentities))
	assert.Equal(t, []string{"A01/2024"}, result.SkippedIdentities)
}

func TestPipelineSkipsUnresolvedDirectories(t *testing.T) {
	trainer := &fakeTrainer{payload: "model"}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true}
	p, _ := testPipeline(t, trainer, resolver)

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 3)
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 3)
	writeStudentDir(t, p.Settings.FacesDir, "ZZ99-2024", 3) // not enrolled
	writeStudentDir(t, p.Settings.FacesDir, "notes", 3)     // malformed name

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ZZ99-2024", "notes"}, result.SkippedDirs)
	assert.Equal(t, []string{"A01/2024", "B02/2023"}, trainer.keys)
}

func TestPipelineAbortsBelowTwoIdentities(t *testing.T) {
	trainer := &fakeTrainer{payload: "model"}
	resolver := mapResolver{"A01/2024": true}
	p, modelPath := testPipeline(t, trainer, resolver)

	// Seed a previous model so the abort has something to preserve.
	previous := []byte("previous-model-bytes")
	require.NoError(t, os.WriteFile(modelPath, previous, 0o644))

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 4)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientIdentities))
	assert.False(t, trainer.trained)

	// The previous model is byte-for-byte untouched.
	blob, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Equal(t, previous, blob)
}

func TestPipelineStagingFailureLeavesModelUntouched(t *testing.T) {
	trainer := &fakeTrainer{payload: "model", saveErr: fmt.Errorf("disk full")}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true}
	p, modelPath := testPipeline(t, trainer, resolver)

	previous := []byte("previous-model-bytes")
	require.NoError(t, os.WriteFile(modelPath, previous, 0o644))

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 3)
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 3)

	_, err := p.Run(context.Background())
	require.Error(t, err)

	blob, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Equal(t, previous, blob)

	// No stray staging directory survives the failure.
	entries, err := os.ReadDir(p.Settings.ModelsDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".staging-")
	}
}

func TestPipelineCanceledContext(t *testing.T) {
	trainer := &fakeTrainer{payload: "model"}
	resolver := mapResolver{"A01/2024": true, "B02/2023": true}
	p, _ := testPipeline(t, trainer, resolver)

	writeStudentDir(t, p.Settings.FacesDir, "A01-2024", 3)
	writeStudentDir(t, p.Settings.FacesDir, "B02-2023", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, trainer.trained)
}
