// Package export writes session attendance lists as CSV files for
// registrars and spreadsheet workflows.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/datastore"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
)

// AttendanceReader is the slice of the datastore the exporter needs.
type AttendanceReader interface {
	SessionAttendance(sessionKey string) ([]datastore.AttendanceEntry, error)
}

// SessionCSV writes one session's attendance as a CSV file under the
// configured export directory and returns the file path. The file name
// is derived from the session key; path separators in registration
// numbers are preserved inside fields by the CSV encoding.
func SessionCSV(settings *conf.ExportSettings, store AttendanceReader, sessionKey string) (string, error) {
	entries, err := store.SessionAttendance(sessionKey)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(settings.Path, 0o755); err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("dir", settings.Path).
			Build()
	}

	path := filepath.Join(settings.Path, fileName(sessionKey))
	f, err := os.Create(path) //nolint:gosec // path derived from the sanitized session key
	if err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	w := csv.NewWriter(f)
	header := []string{"registration_number", "first_name", "last_name", "confidence", "marked_at"}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return "", writeError(err, path)
	}
	for i := range entries {
		e := &entries[i]
		record := []string{
			e.RegistrationNumber,
			e.FirstName,
			e.LastName,
			fmt.Sprintf("%.2f", e.Confidence),
			e.MarkedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return "", writeError(err, path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return "", writeError(err, path)
	}
	if err := f.Close(); err != nil {
		return "", writeError(err, path)
	}

	logging.ForService("export").Info("attendance exported",
		"session", sessionKey, "students", len(entries), "path", path)
	return path, nil
}

func writeError(err error, path string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}

// fileName maps a session key to a filesystem-safe CSV name.
func fileName(sessionKey string) string {
	safe := strings.NewReplacer("/", "-", "\\", "-", " ", "_", ":", "-").Replace(sessionKey)
	return "attendance_" + safe + ".csv"
}
