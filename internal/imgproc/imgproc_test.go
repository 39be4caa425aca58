package imgproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNormalizeColorInput(t *testing.T) {
	n := NewNormalizer(200)
	defer n.Close()

	src := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer src.Close()

	out, err := n.Normalize(src)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 200, out.Rows())
	assert.Equal(t, 200, out.Cols())
	assert.Equal(t, 1, out.Channels())
}

func TestNormalizeGrayInputIsNoOpConversion(t *testing.T) {
	n := NewNormalizer(200)
	defer n.Close()

	src := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC1)
	defer src.Close()

	out, err := n.Normalize(src)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 200, out.Rows())
	assert.Equal(t, 1, out.Channels())
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := NewNormalizer(200)
	defer n.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	out, err := n.Normalize(empty)
	defer out.Close()
	assert.Error(t, err)
}

func TestLoadGrayscaleMissingFile(t *testing.T) {
	_, err := LoadGrayscale(t.TempDir() + "/missing.jpg")
	assert.Error(t, err)
}
