// manage.go gorm configuration and schema migration
package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// slowQueryThreshold flags queries worth looking at; attendance writes
// are tiny, anything near a second indicates a locked database.
const slowQueryThreshold = time.Second

func gormConfig(debug bool) *gorm.Config {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	gl := gormlogger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
	return &gorm.Config{
		Logger: gl,
		// Translate driver duplicate-key errors into
		// gorm.ErrDuplicatedKey so the idempotency check is portable
		// across SQLite and MySQL.
		TranslateError: true,
	}
}

// performAutoMigration creates or updates the schema for all models.
func performAutoMigration(db *gorm.DB, dialect string) error {
	if err := db.AutoMigrate(
		&Student{},
		&Course{},
		&ClassSession{},
		&AttendanceRecord{},
	); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("dialect", dialect).
			Context("operation", "auto-migrate").
			Build()
	}
	return nil
}
