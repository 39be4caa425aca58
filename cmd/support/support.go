// Package support implements the diagnostics command used when filing
// issues: it reports versions, paths and which artifacts are present.
package support

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/recognizer"
	"github.com/dkorir/faceattend-go/internal/training"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Command creates the support command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "support",
		Short: "Print diagnostic information for troubleshooting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupport(settings)
		},
	}
}

func runSupport(settings *conf.Settings) error {
	fmt.Printf("faceattend %s (%s/%s, %s)\n", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())

	paths, err := conf.GetDefaultConfigPaths()
	if err == nil {
		fmt.Println("config search paths:")
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
	}

	fmt.Printf("camera index: %d\n", settings.Camera.Index)
	reportFile("cascade", settings.Detector.CascadePath)
	reportFile("model", settings.Recognizer.ModelPath)
	reportFile("label map", recognizer.LabelMapPath(settings.Recognizer.ModelPath))
	reportDir("image store", settings.Training.FacesDir)
	if settings.Output.SQLite.Enabled {
		reportFile("sqlite database", settings.Output.SQLite.Path)
	}

	metaPath := settings.Training.ModelsDir + "/training_metadata.json"
	if meta, err := training.LoadMetadata(metaPath); err == nil {
		fmt.Printf("last training: %s, %d students, %d images, %.1fs\n",
			meta.TrainingDate, meta.NumStudents, meta.NumImages, meta.TrainingTimeSeconds)
	} else {
		fmt.Println("last training: no metadata found")
	}

	if err := conf.ValidateSettings(settings); err != nil {
		fmt.Printf("configuration problems:\n%v\n", err)
	} else {
		fmt.Println("configuration: ok")
	}
	return nil
}

func reportFile(name, path string) {
	if path == "" {
		fmt.Printf("%s: not configured\n", name)
		return
	}
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("%s: missing (%s)\n", name, path)
	} else {
		fmt.Printf("%s: %s (%d bytes)\n", name, path, info.Size())
	}
}

func reportDir(name, path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		fmt.Printf("%s: missing (%s)\n", name, path)
		return
	}
	dirs := 0
	for _, e := range entries {
		if e.IsDir() {
			dirs++
		}
	}
	fmt.Printf("%s: %s (%d student directories)\n", name, path, dirs)
}
