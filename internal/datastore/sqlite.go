package datastore

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
)

// SQLiteStore implements the attendance store on SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), gormConfig(store.Settings.Debug))
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("dialect", "sqlite").
			Context("path", absoluteFilePath).
			Build()
	}

	store.DB = db
	store.log.Info("sqlite database opened", "path", absoluteFilePath)
	return performAutoMigration(db, "sqlite")
}

// Close releases the underlying connection pool.
func (store *SQLiteStore) Close() error {
	return closeDB(&store.DataStore)
}
