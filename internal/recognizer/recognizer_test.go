package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/conf"
)

func testSettings() *conf.RecognizerSettings {
	return &conf.RecognizerSettings{
		Threshold:   40,
		LenientBand: 1.6,
		Radius:      1,
		Neighbors:   8,
	}
}

// stripes builds a synthetic face with a per-identity spatial frequency,
// giving each identity a distinct LBP texture signature.
func stripes(t *testing.T, period, phase int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC1)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if ((x+phase)/period)%2 == 0 {
				m.SetUCharAt(y, x, 230)
			} else {
				m.SetUCharAt(y, x, 25)
			}
		}
	}
	return m
}

// noise builds a deterministic pseudo-random image with no coherent
// texture.
func noise(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC1)
	seed := uint32(12345)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			seed = seed*1664525 + 1013904223
			m.SetUCharAt(y, x, uint8(seed>>24))
		}
	}
	return m
}

func trainingSet(t *testing.T) (samples []gocv.Mat, labels []int, keys []string) {
	t.Helper()
	keys = []string{"A01/2020", "B02/2022", "C03/2024"}
	for identity := 0; identity < 3; identity++ {
		for i := 0; i < 10; i++ {
			samples = append(samples, stripes(t, 3+identity*4, i))
			labels = append(labels, identity)
		}
	}
	t.Cleanup(func() {
		for i := range samples {
			samples[i].Close()
		}
	})
	return samples, labels, keys
}

func TestTrainValidation(t *testing.T) {
	m := New(testSettings())

	assert.Error(t, m.Train(nil, nil, nil), "empty set must be rejected")

	img := stripes(t, 3, 0)
	defer img.Close()
	assert.Error(t, m.Train([]gocv.Mat{img}, []int{0, 1}, nil), "length mismatch must be rejected")
	assert.False(t, m.Trained())
}

func TestPredictRequiresTraining(t *testing.T) {
	m := New(testSettings())
	img := stripes(t, 3, 0)
	defer img.Close()

	_, _, err := m.Predict(img)
	require.Error(t, err)
}

func TestUpdateRequiresTraining(t *testing.T) {
	m := New(testSettings())
	img := stripes(t, 3, 0)
	defer img.Close()

	assert.Error(t, m.Update([]gocv.Mat{img}, []int{0}))
}

func TestSaveRequiresTraining(t *testing.T) {
	m := New(testSettings())
	assert.Error(t, m.Save(filepath.Join(t.TempDir(), "model.yml")))
}

// End-to-end appearance test: training images classify to their own
// identity with a near-zero distance, structureless noise is rejected
// while its raw distance is still reported.
func TestTrainPredictEndToEnd(t *testing.T) {
	samples, labels, keys := trainingSet(t)

	m := New(testSettings())
	require.NoError(t, m.Train(samples, labels, keys))
	require.True(t, m.Trained())

	// A training image of identity 2 comes back as identity 2.
	identity, distance, err := m.Predict(samples[20])
	require.NoError(t, err)
	assert.Equal(t, "C03/2024", identity)
	assert.Less(t, distance, m.Policy().Threshold)

	// Noise is rejected: no identity, but the distance is returned.
	n := noise(t)
	defer n.Close()
	identity, distance, err = m.Predict(n)
	require.NoError(t, err)
	assert.Empty(t, identity)
	assert.GreaterOrEqual(t, distance, m.Policy().RejectDistance())
}

// Save then load into a fresh model yields an identical label map and
// identical predictions for held-out training images.
func TestSaveLoadRoundTrip(t *testing.T) {
	samples, labels, keys := trainingSet(t)

	m := New(testSettings())
	require.NoError(t, m.Train(samples, labels, keys))

	path := filepath.Join(t.TempDir(), "trained_model.yml")
	require.NoError(t, m.Save(path))

	fresh := New(testSettings())
	require.NoError(t, fresh.Load(path))
	assert.Equal(t, m.LabelMap(), fresh.LabelMap())

	for _, idx := range []int{0, 10, 20} {
		wantID, wantDist, err := m.Predict(samples[idx])
		require.NoError(t, err)
		gotID, gotDist, err := fresh.Predict(samples[idx])
		require.NoError(t, err)
		assert.Equal(t, wantID, gotID)
		assert.InDelta(t, wantDist, gotDist, 1e-6)
	}
}

// A missing label map degrades to identity labels instead of failing.
func TestLoadWithoutLabelMapDegrades(t *testing.T) {
	samples, labels, keys := trainingSet(t)

	m := New(testSettings())
	require.NoError(t, m.Train(samples, labels, keys))

	dir := t.TempDir()
	path := filepath.Join(dir, "trained_model.yml")
	require.NoError(t, m.Save(path))
	require.NoError(t, os.Remove(LabelMapPath(path)))

	fresh := New(testSettings())
	require.NoError(t, fresh.Load(path))
	require.True(t, fresh.Trained())

	identity, _, err := fresh.Predict(samples[20])
	require.NoError(t, err)
	assert.Equal(t, "2", identity, "degrades to the label's own string form")
}

func TestLoadMissingModelFails(t *testing.T) {
	m := New(testSettings())
	err := m.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.False(t, m.Trained(), "failed load leaves the model untrained")
}

func TestUpdateAddsIdentity(t *testing.T) {
	samples, labels, keys := trainingSet(t)

	m := New(testSettings())
	require.NoError(t, m.Train(samples, labels, keys))

	extra := stripes(t, 17, 0)
	defer extra.Close()
	require.NoError(t, m.Update([]gocv.Mat{extra}, []int{3}))

	identity, distance, err := m.Predict(extra)
	require.NoError(t, err)
	assert.Equal(t, "3", identity)
	assert.Less(t, distance, m.Policy().Threshold)

	// Prior identities survive the incremental update.
	identity, _, err = m.Predict(samples[0])
	require.NoError(t, err)
	assert.Equal(t, "A01/2020", identity)
}
