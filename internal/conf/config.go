// config.go: settings for the faceattend application. Defines the settings
// struct tree and the functions to load and save it.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// MainSettings contains application-wide settings.
type MainSettings struct {
	Name string // application instance name, used in notifications and exports
	Log  LogSettings
}

// LogSettings contains structured log output settings.
type LogSettings struct {
	Enabled bool   // true to write structured logs to a file
	Path    string // path to the structured log file
	Level   string // minimum level: trace, debug, info, warn, error
}

// CameraSettings contains camera device settings.
type CameraSettings struct {
	Index        int // device index passed to the capture backend
	Width        int // requested frame width in pixels
	Height       int // requested frame height in pixels
	FPS          int // requested capture frame rate
	PollMs       int // recognition poll interval in milliseconds
	MaxReadFails int // consecutive failed reads before the session reports camera loss
}

// FilterSettings contains the geometric post-filter bounds applied to
// raw detector output.
type FilterSettings struct {
	MinAspect float64 // minimum width/height ratio of a face candidate
	MaxAspect float64 // maximum width/height ratio of a face candidate
	MinSide   int     // minimum width and height in pixels
	MaxSide   int     // maximum width and height in pixels
}

// DetectorSettings contains cascade detection settings.
type DetectorSettings struct {
	CascadePath  string  // path to the cascade classifier XML file
	ScaleFactor  float64 // multi-scale pyramid step factor
	MinNeighbors int     // minimum neighbor agreement count
	MinSize      int     // minimum detection window side in pixels
	Filter       FilterSettings
}

// RecognizerSettings contains LBPH recognizer settings.
type RecognizerSettings struct {
	Threshold   float64 // strict acceptance distance threshold, lower distance is better
	LenientBand float64 // multiplier on Threshold for the lenient acceptance band
	Radius      int     // LBP radius
	Neighbors   int     // LBP sampling points
	// GridX and GridY document the histogram grid the backend trains
	// with. The OpenCV bindings expose no grid setters, so these are
	// informational only; the backend default is 8x8.
	GridX     int    // histogram grid columns
	GridY     int    // histogram grid rows
	ModelPath string // path to the trained model file
}

// TrainingSettings contains training pipeline settings.
type TrainingSettings struct {
	FacesDir  string // root of the directory-per-student image store
	ModelsDir string // directory for model artifacts, metadata and backups
	MinImages int    // minimum images per student to include in training
	ImageSize int    // canonical square face size in pixels
	CaptureN  int    // images to capture during enrollment
	DelayMs   int    // delay between enrollment captures in milliseconds
}

// TelemetrySettings contains the optional Prometheus endpoint settings.
type TelemetrySettings struct {
	Enabled bool   // true to enable the telemetry endpoint
	Listen  string // listen address and port
}

// RealtimeSettings contains attendance session settings.
type RealtimeSettings struct {
	Telemetry TelemetrySettings
}

// SQLiteSettings contains SQLite output settings.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings contains MySQL output settings.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings contains database output settings.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// NotifySettings contains session summary notification settings.
type NotifySettings struct {
	Enabled bool
	Urls    []string // shoutrrr service URLs
}

// ExportSettings contains attendance export settings.
type ExportSettings struct {
	Path string // directory for exported CSV files
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool // true to enable debug output

	Main       MainSettings
	Camera     CameraSettings
	Detector   DetectorSettings
	Recognizer RecognizerSettings
	Training   TrainingSettings
	Realtime   RealtimeSettings
	Output     OutputSettings
	Notify     NotifySettings
	Export     ExportSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings instance. The config
// file is searched in the default config paths; a missing file is not an
// error, defaults apply.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.Newf("error unmarshaling config: %w", err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file on disk, run on defaults.
	}

	return nil
}

// GetSettings returns the current settings instance, loading it on first
// use. Intended for call sites that cannot take an injected Settings.
func GetSettings() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	settings, err := Load()
	if err != nil {
		return nil
	}
	return settings
}

// SaveAs writes the current settings to the given path as YAML, creating
// parent directories as needed. Used to generate a starter config file.
func (s *Settings) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // config file is not secret
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
