// Package train implements the model training command.
package train

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/imgproc"
	"github.com/dkorir/faceattend-go/internal/recognizer"
	"github.com/dkorir/faceattend-go/internal/training"
)

// Command creates the train command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the face model from the enrollment image store",
		Long:  "Build a fresh identity model from the directory-per-student image store and atomically replace the previous model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Training.FacesDir, "faces", viper.GetString("training.facesdir"), "Root of the enrollment image store")
	cmd.Flags().StringVar(&settings.Training.ModelsDir, "models", viper.GetString("training.modelsdir"), "Directory for model artifacts and backups")
	cmd.Flags().IntVar(&settings.Training.MinImages, "minimages", viper.GetInt("training.minimages"), "Minimum images per student")

	bindings := map[string]string{
		"faces":     "training.facesdir",
		"models":    "training.modelsdir",
		"minimages": "training.minimages",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			fmt.Printf("error binding flag %s: %v\n", flag, err)
		}
	}
}

func runTrain(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in settings").
			Component("train").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	model := recognizer.New(&settings.Recognizer)
	norm := imgproc.NewNormalizer(settings.Training.ImageSize)
	defer norm.Close()

	pipeline := training.NewPipeline(&settings.Training, settings.Recognizer.ModelPath,
		model, norm, store, imgproc.LoadGrayscale)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Trained %d identities from %d images in %s.\n",
		result.IdentityCount, result.SampleCount, result.Elapsed.Round(time.Millisecond))
	for _, dir := range result.SkippedDirs {
		fmt.Printf("  skipped directory %q: no matching enrolled student\n", dir)
	}
	for _, registration := range result.SkippedIdentities {
		fmt.Printf("  skipped student %s: fewer than %d usable images\n",
			registration, settings.Training.MinImages)
	}
	return nil
}
