// conf/utils.go path helpers for the configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// GetDefaultConfigPaths returns the list of default configuration paths
// for the current operating system, in search order.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "faceattend"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "faceattend"),
			"/etc/faceattend",
			exeDir,
			".",
		}
	}

	return configPaths, nil
}

// GetBasePath expands a relative path against the current working
// directory and ensures the directory exists.
func GetBasePath(path string) string {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return path
	}
	return path
}
