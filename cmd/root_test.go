package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorir/faceattend-go/internal/conf"
)

// Building the command tree binds every flag to its config key. Flags
// carry flat names (--camera, --export) while the config tree is
// nested, so a careless binding can shadow whole sections.
func TestCommandTreePreservesNestedConfigKeys(t *testing.T) {
	viper.Reset()
	settings, err := conf.Load()
	require.NoError(t, err)

	root := RootCommand(settings)
	require.NotNil(t, root)

	assert.Equal(t, 100, viper.GetInt("camera.pollms"),
		"camera.pollms must survive the --camera flag binding")
	assert.Equal(t, "exports", viper.GetString("export.path"),
		"export.path must survive the --export flag binding")
	assert.Equal(t, 50.0, viper.GetFloat64("recognizer.threshold"))
	assert.Equal(t, 0, viper.GetInt("camera.index"))
}

func TestThresholdFlagSurvivesPreRun(t *testing.T) {
	viper.Reset()
	settings, err := conf.Load()
	require.NoError(t, err)

	root := RootCommand(settings)
	require.NoError(t, root.PersistentFlags().Set("threshold", "30"))
	require.NoError(t, root.PersistentPreRunE(root, nil))

	assert.Equal(t, 30.0, settings.Recognizer.Threshold,
		"a flag value must not be reset by the pre-run unmarshal")
	assert.Equal(t, 100, settings.Camera.PollMs,
		"untouched settings keep their config values")
}
