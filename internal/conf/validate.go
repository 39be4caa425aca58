// conf/validate.go settings validation
package conf

import (
	"fmt"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values that would make
// the pipeline misbehave in ways that are hard to diagnose at runtime.
func ValidateSettings(s *Settings) error {
	var problems []string

	if s.Detector.ScaleFactor <= 1.0 {
		problems = append(problems, fmt.Sprintf("detector.scalefactor must be > 1.0, got %g", s.Detector.ScaleFactor))
	}
	if s.Detector.MinNeighbors < 1 {
		problems = append(problems, fmt.Sprintf("detector.minneighbors must be >= 1, got %d", s.Detector.MinNeighbors))
	}
	if s.Detector.Filter.MinAspect <= 0 || s.Detector.Filter.MaxAspect < s.Detector.Filter.MinAspect {
		problems = append(problems, "detector.filter aspect bounds are inverted or non-positive")
	}
	if s.Detector.Filter.MinSide <= 0 || s.Detector.Filter.MaxSide < s.Detector.Filter.MinSide {
		problems = append(problems, "detector.filter side bounds are inverted or non-positive")
	}

	if s.Recognizer.Threshold <= 0 {
		problems = append(problems, fmt.Sprintf("recognizer.threshold must be positive, got %g", s.Recognizer.Threshold))
	}
	if s.Recognizer.LenientBand < 1.0 {
		problems = append(problems, fmt.Sprintf("recognizer.lenientband must be >= 1.0, got %g", s.Recognizer.LenientBand))
	}

	if s.Training.MinImages < 1 {
		problems = append(problems, fmt.Sprintf("training.minimages must be >= 1, got %d", s.Training.MinImages))
	}
	if s.Training.ImageSize < 16 {
		problems = append(problems, fmt.Sprintf("training.imagesize is too small to be useful: %d", s.Training.ImageSize))
	}

	if s.Camera.PollMs < 1 {
		problems = append(problems, fmt.Sprintf("camera.pollms must be >= 1, got %d", s.Camera.PollMs))
	}

	if !s.Output.SQLite.Enabled && !s.Output.MySQL.Enabled {
		problems = append(problems, "no database output enabled, enable output.sqlite or output.mysql")
	}
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		problems = append(problems, "only one database output may be enabled at a time")
	}

	if s.Notify.Enabled && len(s.Notify.Urls) == 0 {
		problems = append(problems, "notify.enabled is set but notify.urls is empty")
	}

	if len(problems) > 0 {
		return errors.Newf("invalid configuration: %v", problems).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("problem_count", len(problems)).
			Build()
	}
	return nil
}
