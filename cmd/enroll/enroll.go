// Package enroll implements the enrollment capture command: it collects
// face images for one student into the training image store.
package enroll

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"

	"github.com/dkorir/faceattend-go/internal/camera"
	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/detect"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/imgproc"
	"github.com/dkorir/faceattend-go/internal/logging"
	"github.com/dkorir/faceattend-go/internal/studentdir"
)

// extractMargin matches the live session crop so training and
// recognition see the same framing.
const extractMargin = 10

// Command creates the enroll command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		registration string
		firstName    string
		lastName     string
	)

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Capture enrollment images for a student",
		Long:  "Capture face images from the camera into the student's training directory, registering the student first if names are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if registration == "" {
				return errors.Newf("a registration number is required, pass --registration").
					Component("enroll").
					Category(errors.CategoryValidation).
					Build()
			}
			return runEnroll(settings, registration, firstName, lastName)
		},
	}

	cmd.Flags().StringVarP(&registration, "registration", "r", "", "Student registration number (required)")
	cmd.Flags().StringVar(&firstName, "first", "", "First name, registers the student when given with --last")
	cmd.Flags().StringVar(&lastName, "last", "", "Last name, registers the student when given with --first")
	setupFlags(cmd, settings)

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().IntVar(&settings.Training.CaptureN, "count", viper.GetInt("training.capturen"), "Number of face images to capture")
	cmd.Flags().IntVar(&settings.Training.DelayMs, "delay", viper.GetInt("training.delayms"), "Delay between captures in milliseconds")

	// registration, first and last are per-invocation and stay unbound.
	bindings := map[string]string{
		"count": "training.capturen",
		"delay": "training.delayms",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			fmt.Printf("error binding flag %s: %v\n", flag, err)
		}
	}
}

func runEnroll(settings *conf.Settings, registration, firstName, lastName string) error {
	log := logging.ForService("enroll")

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in settings").
			Component("enroll").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	if err := ensureStudent(store, registration, firstName, lastName); err != nil {
		return err
	}

	dirName, err := studentdir.Encode(registration)
	if err != nil {
		return err
	}
	captureDir := filepath.Join(settings.Training.FacesDir, dirName)
	if err := os.MkdirAll(captureDir, 0o755); err != nil {
		return errors.New(err).
			Component("enroll").
			Category(errors.CategoryFileIO).
			Context("dir", captureDir).
			Build()
	}

	detector, err := detect.New(&settings.Detector)
	if err != nil {
		return err
	}
	defer detector.Close()

	source, err := camera.Open(&settings.Camera, "enroll")
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	captured, err := captureFaces(ctx, settings, source, detector, captureDir)
	if err != nil {
		return err
	}

	log.Info("enrollment capture finished",
		"registration", registration, "images", captured, "dir", captureDir)
	fmt.Printf("Captured %d face images for %s into %s.\n", captured, registration, captureDir)
	if captured < settings.Training.MinImages {
		fmt.Printf("Warning: %d images is below the training minimum of %d; run enroll again.\n",
			captured, settings.Training.MinImages)
	}
	return nil
}

// ensureStudent verifies the student exists, registering them when both
// names are provided.
func ensureStudent(store datastore.Interface, registration, firstName, lastName string) error {
	known, err := store.ResolveRegistration(registration)
	if err != nil {
		return err
	}
	if known {
		return nil
	}
	if firstName == "" || lastName == "" {
		return errors.Newf("student %s is not registered; pass --first and --last to register", registration).
			Component("enroll").
			Category(errors.CategoryValidation).
			Build()
	}
	return store.UpsertStudent(&datastore.Student{
		RegistrationNumber: registration,
		FirstName:          firstName,
		LastName:           lastName,
	})
}

// captureFaces polls the camera and saves grayscale face crops until the
// configured count is reached or ctx is canceled. Frames without a
// usable face are skipped silently; students adjust their pose between
// captures.
func captureFaces(ctx context.Context, settings *conf.Settings, source *camera.Source, detector *detect.Detector, captureDir string) (int, error) {
	delay := time.Duration(settings.Training.DelayMs) * time.Millisecond
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	frame := gocv.NewMat()
	defer frame.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	captured := 0
	stamp := time.Now().Format("20060102_150405")
	for captured < settings.Training.CaptureN {
		select {
		case <-ctx.Done():
			return captured, nil
		case <-time.After(delay):
		}

		if ok := source.Read(&frame); !ok {
			if settings.Camera.MaxReadFails > 0 && source.ConsecutiveFailures() >= settings.Camera.MaxReadFails {
				return captured, errors.Newf("camera lost after %d consecutive failed reads", source.ConsecutiveFailures()).
					Component("enroll").
					Category(errors.CategoryCamera).
					Build()
			}
			continue
		}

		region, found := detector.LocateLargest(frame)
		if !found {
			continue
		}

		face := detector.Extract(frame, region, extractMargin)
		gocv.CvtColor(face, &gray, gocv.ColorBGRToGray)
		face.Close()

		path := filepath.Join(captureDir, fmt.Sprintf("img_%s_%03d.jpg", stamp, captured))
		if err := imgproc.SaveImage(path, gray); err != nil {
			return captured, err
		}
		captured++
		fmt.Printf("Captured image %d of %d.\n", captured, settings.Training.CaptureN)
	}
	return captured, nil
}
