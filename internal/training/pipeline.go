// Package training walks the directory-per-student image store, builds a
// fresh identity model from it and replaces the persisted artifacts
// atomically. A failed run never disturbs the previous model on disk.
package training

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
	"github.com/dkorir/faceattend-go/internal/recognizer"
	"github.com/dkorir/faceattend-go/internal/studentdir"
)

// imageLoadWorkers bounds concurrent image decodes per identity. Decoding
// is the only CPU-heavy part of data loading; the accumulators stay
// single-writer behind a mutex.
const imageLoadWorkers = 4

// Trainer is the slice of the identity model the pipeline drives.
// Satisfied by *recognizer.Model.
type Trainer interface {
	Train(samples []gocv.Mat, labels []int, keys []string) error
	Save(path string) error
}

// Normalizer converts loaded images to the canonical trainable form.
// Satisfied by *imgproc.Normalizer.
type Normalizer interface {
	Normalize(src gocv.Mat) (gocv.Mat, error)
}

// ImageLoader reads an image file from the store. Injected so tests can
// run the pipeline without image fixtures.
type ImageLoader func(path string) (gocv.Mat, error)

// Result summarizes a completed training run.
type Result struct {
	SampleCount   int
	IdentityCount int
	Elapsed       time.Duration
	// SkippedDirs lists store directories whose names did not resolve
	// to a known student. Surfaced for operator review, never guessed.
	SkippedDirs []string
	// SkippedIdentities lists students excluded for having fewer than
	// the minimum sample count.
	SkippedIdentities []string
}

// Pipeline is the offline training workflow. All collaborators are
// injected; there is no process-global model or store.
type Pipeline struct {
	Settings *conf.TrainingSettings
	// ModelPath is the live model artifact path the run replaces.
	ModelPath string
	Trainer   Trainer
	Norm      Normalizer
	Loader    ImageLoader
	Resolver  studentdir.Resolver

	log *slog.Logger
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(settings *conf.TrainingSettings, modelPath string, trainer Trainer, norm Normalizer, resolver studentdir.Resolver, loader ImageLoader) *Pipeline {
	return &Pipeline{
		Settings:  settings,
		ModelPath: modelPath,
		Trainer:   trainer,
		Norm:      norm,
		Loader:    loader,
		Resolver:  resolver,
		log:       logging.ForService("training"),
	}
}

// Run executes the full training workflow. Per-image and per-identity
// problems are recovered locally; insufficient distinct identities and
// artifact write failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var result Result

	samples, labels, keys, err := p.loadTrainingData(ctx, &result)
	defer func() {
		for i := range samples {
			samples[i].Close()
		}
	}()
	if err != nil {
		return result, err
	}

	if len(keys) < 2 {
		return result, errors.New(errors.ErrInsufficientIdentities).
			Component("training").
			Category(errors.CategoryTraining).
			Context("identities", len(keys)).
			Build()
	}

	if err := p.Trainer.Train(samples, labels, keys); err != nil {
		return result, err
	}

	result.SampleCount = len(samples)
	result.IdentityCount = len(keys)
	result.Elapsed = time.Since(start)

	if err := p.persistArtifacts(result); err != nil {
		return result, err
	}

	p.log.Info("training run completed",
		"images", result.SampleCount,
		"identities", result.IdentityCount,
		"elapsed", result.Elapsed,
		"skipped_dirs", len(result.SkippedDirs),
		"skipped_identities", len(result.SkippedIdentities))
	return result, nil
}

// loadTrainingData enumerates the store and accumulates normalized
// samples with dense labels assigned in directory-name order.
func (p *Pipeline) loadTrainingData(ctx context.Context, result *Result) (samples []gocv.Mat, labels []int, keys []string, err error) {
	entries, err := os.ReadDir(p.Settings.FacesDir)
	if err != nil {
		return nil, nil, nil, errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("dir", p.Settings.FacesDir).
			Build()
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	nextLabel := 0
	for _, dirName := range names {
		if err := ctx.Err(); err != nil {
			return samples, labels, keys, err
		}

		registration, rerr := studentdir.Resolve(dirName, p.Resolver)
		if rerr != nil {
			p.log.Warn("skipping unresolved store directory", "dir", dirName, "error", rerr)
			result.SkippedDirs = append(result.SkippedDirs, dirName)
			continue
		}

		paths := p.imagePaths(dirName)
		if len(paths) < p.Settings.MinImages {
			p.log.Warn("skipping student with too few images",
				"registration", registration, "images", len(paths), "required", p.Settings.MinImages)
			result.SkippedIdentities = append(result.SkippedIdentities, registration)
			continue
		}

		loaded := p.loadIdentityImages(ctx, paths)
		if len(loaded) < p.Settings.MinImages {
			// Unreadable files dropped the identity below the floor.
			for i := range loaded {
				loaded[i].Close()
			}
			p.log.Warn("skipping student after unreadable images",
				"registration", registration, "usable", len(loaded), "required", p.Settings.MinImages)
			result.SkippedIdentities = append(result.SkippedIdentities, registration)
			continue
		}

		for i := range loaded {
			samples = append(samples, loaded[i])
			labels = append(labels, nextLabel)
		}
		keys = append(keys, registration)
		p.log.Info("loaded training images",
			"registration", registration, "label", nextLabel, "images", len(loaded))
		nextLabel++
	}

	return samples, labels, keys, nil
}

func (p *Pipeline) imagePaths(dirName string) []string {
	dir := filepath.Join(p.Settings.FacesDir, dirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.log.Warn("unreadable store directory", "dir", dir, "error", err)
		return nil
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && studentdir.IsImageFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// loadIdentityImages decodes and normalizes one identity's images with
// bounded concurrency. A single unreadable image is skipped with a
// warning, it never aborts the run.
func (p *Pipeline) loadIdentityImages(ctx context.Context, paths []string) []gocv.Mat {
	var (
		mu     sync.Mutex
		loaded []gocv.Mat
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imageLoadWorkers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := p.Loader(path)
			if err != nil {
				p.log.Warn("skipping unreadable image", "path", path, "error", err)
				return nil
			}
			defer img.Close()

			normalized, err := p.Norm.Normalize(img)
			if err != nil {
				p.log.Warn("skipping unnormalizable image", "path", path, "error", err)
				normalized.Close()
				return nil
			}

			mu.Lock()
			loaded = append(loaded, normalized)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers only return context errors; images are best-effort
	return loaded
}

// persistArtifacts stages the model, label map and metadata in a
// temporary directory next to the live model, copies the backup, then
// renames everything into place with the model blob last. Any failure
// before the renames leaves the previous artifacts byte-for-byte
// untouched.
func (p *Pipeline) persistArtifacts(result Result) error {
	liveDir := filepath.Dir(p.ModelPath)
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("dir", liveDir).
			Build()
	}

	staging, err := os.MkdirTemp(liveDir, ".staging-")
	if err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("dir", liveDir).
			Build()
	}
	defer os.RemoveAll(staging)

	stagedModel := filepath.Join(staging, filepath.Base(p.ModelPath))
	if err := p.Trainer.Save(stagedModel); err != nil {
		return err
	}

	meta := NewMetadata(result.IdentityCount, result.SampleCount, p.Settings.ImageSize, result.Elapsed)
	stagedMeta := filepath.Join(staging, "training_metadata.json")
	if err := meta.Save(stagedMeta); err != nil {
		return err
	}

	if err := p.writeBackup(stagedModel); err != nil {
		return err
	}

	// Replace live artifacts; the model blob goes last so a crash in
	// between never pairs a new model with an old label map.
	renames := [][2]string{
		{stagedMeta, filepath.Join(p.Settings.ModelsDir, "training_metadata.json")},
		{recognizer.LabelMapPath(stagedModel), recognizer.LabelMapPath(p.ModelPath)},
		{stagedModel, p.ModelPath},
	}
	for _, r := range renames {
		if err := os.Rename(r[0], r[1]); err != nil {
			return errors.New(err).
				Component("training").
				Category(errors.CategoryFileIO).
				Context("from", r[0]).
				Context("to", r[1]).
				Build()
		}
	}
	return nil
}

// writeBackup copies the staged model to a timestamped file under the
// models directory. Every successful train keeps one.
func (p *Pipeline) writeBackup(stagedModel string) error {
	backupDir := filepath.Join(p.Settings.ModelsDir, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("dir", backupDir).
			Build()
	}

	stamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(backupDir, "model_"+stamp+filepath.Ext(p.ModelPath))
	if err := copyFile(stagedModel, backupPath); err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("path", backupPath).
			Build()
	}
	p.log.Info("model backup written", "path", backupPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // staged artifact path built above
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // backup path built above
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
