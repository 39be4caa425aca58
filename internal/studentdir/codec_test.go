package studentdir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		registration string
		dirName      string
	}{
		{"E028-01-1303/2020", "E028-01-1303-2020"},
		{"E028-01-0042/2022", "E028-01-0042-2022"},
		{"B12/2024", "B12-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.registration, func(t *testing.T) {
			encoded, err := Encode(tt.registration)
			require.NoError(t, err)
			assert.Equal(t, tt.dirName, encoded)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.registration, decoded)
		})
	}
}

func TestDecodeRejectsUnparseableNames(t *testing.T) {
	bad := []string{
		"",
		"README.md",
		"E028-01-1303",      // no year suffix
		"E028-01-1303-20",   // year too short
		"E028 2020",         // space, not part of the grammar
		"-2020",             // empty body
		"E028-01-1303-abcd", // non-numeric year
	}
	for _, name := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(name)
			assert.Error(t, err, "expected %q to be rejected", name)
		})
	}
}

// The year segment is always the final dash-separated 4-digit group, so
// a body that itself ends in digits still decodes deterministically.
func TestDecodeYearIsFinalGroup(t *testing.T) {
	decoded, err := Decode("A-2020-2021")
	require.NoError(t, err)
	assert.Equal(t, "A-2020/2021", decoded)
}

type fakeResolver struct {
	known map[string]bool
	err   error
}

func (f *fakeResolver) ResolveRegistration(registration string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[registration], nil
}

func TestResolve(t *testing.T) {
	resolver := &fakeResolver{known: map[string]bool{"E028-01-1303/2020": true}}

	registration, err := Resolve("E028-01-1303-2020", resolver)
	require.NoError(t, err)
	assert.Equal(t, "E028-01-1303/2020", registration)

	_, err = Resolve("E028-01-9999-2020", resolver)
	assert.Error(t, err, "unknown student must be rejected, not guessed")

	_, err = Resolve("not a directory", resolver)
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("face_001.jpg"))
	assert.True(t, IsImageFile("face_001.JPEG"))
	assert.True(t, IsImageFile("face_001.png"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.False(t, IsImageFile("README.md"))
}
