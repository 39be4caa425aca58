// Package attend implements the live attendance session command.
package attend

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkorir/faceattend-go/internal/camera"
	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/detect"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/export"
	"github.com/dkorir/faceattend-go/internal/imgproc"
	"github.com/dkorir/faceattend-go/internal/logging"
	"github.com/dkorir/faceattend-go/internal/notify"
	"github.com/dkorir/faceattend-go/internal/observability"
	"github.com/dkorir/faceattend-go/internal/recognizer"
	"github.com/dkorir/faceattend-go/internal/session"
)

// Command creates the attend command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		courseCode string
		sessionKey string
		exportCSV  bool
	)

	cmd := &cobra.Command{
		Use:   "attend",
		Short: "Run a live attendance session",
		Long:  "Open the camera and mark recognized students present until interrupted with Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if courseCode == "" {
				return errors.Newf("a course code is required, pass --course").
					Component("attend").
					Category(errors.CategoryValidation).
					Build()
			}
			if sessionKey == "" {
				sessionKey = fmt.Sprintf("%s-%s", courseCode, time.Now().Format("2006-01-02"))
			}
			return runAttend(settings, courseCode, sessionKey, exportCSV)
		},
	}

	cmd.Flags().StringVarP(&courseCode, "course", "c", "", "Course code for this session (required)")
	cmd.Flags().StringVar(&sessionKey, "session", "", "Session key, defaults to <course>-<date>")
	cmd.Flags().BoolVar(&exportCSV, "export", false, "Write the attendance CSV when the session ends")
	setupFlags(cmd, settings)

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().IntVar(&settings.Camera.PollMs, "poll", viper.GetInt("camera.pollms"), "Recognition poll interval in milliseconds")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")

	// Bound to dotted config keys; course, session and export are
	// per-invocation and stay unbound.
	bindings := map[string]string{
		"poll":      "camera.pollms",
		"telemetry": "realtime.telemetry.enabled",
		"listen":    "realtime.telemetry.listen",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			fmt.Printf("error binding flag %s: %v\n", flag, err)
		}
	}
}

func runAttend(settings *conf.Settings, courseCode, sessionKey string, exportCSV bool) error {
	log := logging.ForService("attend")

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in settings").
			Component("attend").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close datastore", "error", err)
		}
	}()

	model := recognizer.New(&settings.Recognizer)
	if err := model.Load(settings.Recognizer.ModelPath); err != nil {
		return err
	}

	detector, err := detect.New(&settings.Detector)
	if err != nil {
		return err
	}
	defer detector.Close()

	norm := imgproc.NewNormalizer(settings.Training.ImageSize)
	defer norm.Close()

	source, err := camera.Open(&settings.Camera, "attend")
	if err != nil {
		return err
	}
	defer source.Close()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	quit := make(chan struct{})
	if settings.Realtime.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return err
		}
		endpoint.Start(&wg, quit)
	}

	notifier, err := notify.NewSender(&settings.Notify)
	if err != nil {
		return err
	}

	sess, err := session.New(settings, courseCode, sessionKey,
		source, detector, norm, model, store, metrics.Session, notifier)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go displayEvents(sess.Events())

	fmt.Printf("Session %s open for %s, press Ctrl-C to close.\n", sessionKey, courseCode)
	summary, runErr := sess.Run(ctx)
	close(quit)
	wg.Wait()

	fmt.Printf("Session %s closed: %d students marked present over %d frames.\n",
		summary.SessionKey, summary.MarkedCount, summary.Frames)

	if exportCSV {
		path, err := export.SessionCSV(&settings.Export, store, sessionKey)
		if err != nil {
			log.Error("attendance export failed", "session", sessionKey, "error", err)
		} else {
			fmt.Printf("Attendance list written to %s\n", path)
		}
	}
	return runErr
}

// displayEvents prints the live feed a lecturer watches during the
// session. Runs until the session closes its event channel.
func displayEvents(events <-chan session.Event) {
	for e := range events {
		switch e.Kind {
		case session.EventMarked:
			fmt.Printf("[%s] PRESENT  %-20s confidence %.1f%%\n",
				e.Time.Format("15:04:05"), e.Registration, e.Confidence)
		case session.EventAlreadyMarked:
			// Quiet; the student is already on the list.
		case session.EventUncertain:
			fmt.Printf("[%s] UNSURE   face too ambiguous to mark (distance %.1f)\n",
				e.Time.Format("15:04:05"), e.Distance)
		case session.EventUnknown:
			fmt.Printf("[%s] UNKNOWN  face not in the trained model\n",
				e.Time.Format("15:04:05"))
		case session.EventCameraTrouble:
			fmt.Printf("[%s] CAMERA   frame read failed\n", e.Time.Format("15:04:05"))
		case session.EventWriteFailed:
			fmt.Printf("[%s] DBERROR  %s recognized but not saved, will retry\n",
				e.Time.Format("15:04:05"), e.Registration)
		}
	}
}
