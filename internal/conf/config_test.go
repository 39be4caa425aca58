package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	setDefaultConfig()
	s := &Settings{}
	require.NoError(t, viper.Unmarshal(s))
	return s
}

func TestDefaultsAreValid(t *testing.T) {
	s := defaultSettings(t)
	require.NoError(t, ValidateSettings(s))

	assert.Equal(t, 50.0, s.Recognizer.Threshold)
	assert.Equal(t, 1.6, s.Recognizer.LenientBand)
	assert.Equal(t, 200, s.Training.ImageSize)
	assert.Equal(t, 7, s.Training.MinImages)
	assert.Equal(t, 0.7, s.Detector.Filter.MinAspect)
	assert.Equal(t, 1.3, s.Detector.Filter.MaxAspect)
	assert.True(t, s.Output.SQLite.Enabled)
	assert.False(t, s.Output.MySQL.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero threshold", func(s *Settings) { s.Recognizer.Threshold = 0 }},
		{"band below one", func(s *Settings) { s.Recognizer.LenientBand = 0.5 }},
		{"inverted aspect bounds", func(s *Settings) { s.Detector.Filter.MaxAspect = 0.1 }},
		{"scale factor at one", func(s *Settings) { s.Detector.ScaleFactor = 1.0 }},
		{"no outputs", func(s *Settings) { s.Output.SQLite.Enabled = false }},
		{"both outputs", func(s *Settings) { s.Output.MySQL.Enabled = true }},
		{"notify without urls", func(s *Settings) { s.Notify.Enabled = true }},
		{"tiny image size", func(s *Settings) { s.Training.ImageSize = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings(t)
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestSaveAsRoundTrip(t *testing.T) {
	s := defaultSettings(t)
	path := t.TempDir() + "/config.yaml"
	require.NoError(t, s.SaveAs(path))

	viper.Reset()
	setDefaultConfig()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	loaded := &Settings{}
	require.NoError(t, viper.Unmarshal(loaded))
	assert.Equal(t, s.Recognizer.Threshold, loaded.Recognizer.Threshold)
	assert.Equal(t, s.Training.FacesDir, loaded.Training.FacesDir)
}
