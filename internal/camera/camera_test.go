package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
)

// The ownership guard is process-local state independent of any physical
// device, so it is tested directly.
func TestDeviceGuardExclusion(t *testing.T) {
	deviceGuard.Lock()
	deviceGuard.held[9] = "registration"
	deviceGuard.Unlock()
	t.Cleanup(func() { release(9) })

	deviceGuard.Lock()
	holder, busy := deviceGuard.held[9]
	deviceGuard.Unlock()
	assert.True(t, busy)
	assert.Equal(t, "registration", holder)

	release(9)

	deviceGuard.Lock()
	_, busy = deviceGuard.held[9]
	deviceGuard.Unlock()
	assert.False(t, busy)
}

// Open refuses a held device before it touches the capture backend, so
// the busy path is testable without a physical camera.
func TestOpenFailsFastWhenDeviceHeld(t *testing.T) {
	settings := &conf.CameraSettings{Index: 11, Width: 640, Height: 480}

	deviceGuard.Lock()
	deviceGuard.held[settings.Index] = "attend"
	deviceGuard.Unlock()
	t.Cleanup(func() { release(settings.Index) })

	src, err := Open(settings, "enroll")
	require.Error(t, err)
	assert.Nil(t, src)
	assert.True(t, errors.Is(err, errors.ErrCameraBusy))

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, errors.CategoryCamera, enhanced.Category)

	// The losing caller must not have evicted the holder.
	deviceGuard.Lock()
	holder := deviceGuard.held[settings.Index]
	deviceGuard.Unlock()
	assert.Equal(t, "attend", holder)

	// Once released, a fresh Open may still fail on this machine for
	// want of a device, but never with the busy error.
	release(settings.Index)
	src, err = Open(settings, "enroll")
	if err != nil {
		assert.False(t, errors.Is(err, errors.ErrCameraBusy))
		return
	}
	require.NoError(t, src.Close())
}
