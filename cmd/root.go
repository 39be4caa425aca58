// Package cmd assembles the faceattend command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkorir/faceattend-go/cmd/attend"
	"github.com/dkorir/faceattend-go/cmd/enroll"
	"github.com/dkorir/faceattend-go/cmd/export"
	"github.com/dkorir/faceattend-go/cmd/support"
	"github.com/dkorir/faceattend-go/cmd/train"
	"github.com/dkorir/faceattend-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "faceattend",
		Short: "faceattend CLI",
		Long:  "Camera based class attendance: train a face model from enrollment images and mark students present in live sessions.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		attend.Command(settings),
		train.Command(settings),
		enroll.Command(settings),
		export.Command(settings),
		support.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		// Flags are bound to their dotted config keys, so unmarshalling
		// picks up flag values over config file values.
		return viper.Unmarshal(settings)
	}

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.IntVar(&settings.Camera.Index, "camera", viper.GetInt("camera.index"), "Capture device index")
	flags.StringVar(&settings.Recognizer.ModelPath, "model", viper.GetString("recognizer.modelpath"), "Path to the trained face model")
	flags.Float64VarP(&settings.Recognizer.Threshold, "threshold", "t", viper.GetFloat64("recognizer.threshold"), "Recognition distance threshold, lower is stricter")

	// Each flag binds to its dotted config key. Binding the flat flag
	// names would shadow the nested sections they configure.
	bindings := map[string]string{
		"debug":     "debug",
		"camera":    "camera.index",
		"model":     "recognizer.modelpath",
		"threshold": "recognizer.threshold",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Printf("error binding flag %s: %v\n", flag, err)
		}
	}
}
