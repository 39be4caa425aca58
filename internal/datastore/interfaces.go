// interfaces.go: the interface for attendance store operations
package datastore

import (
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines
// the store operations the pipeline consumes.
type Interface interface {
	Open() error
	Close() error

	// Students
	UpsertStudent(student *Student) error
	GetStudentByRegistration(registration string) (Student, error)
	GetAllStudents() ([]Student, error)
	ResolveRegistration(registration string) (bool, error)

	// Courses and sessions
	UpsertCourse(course *Course) error
	GetCourseByCode(code string) (Course, error)
	OpenSession(courseCode, sessionKey string) (*ClassSession, error)
	CloseSession(sessionKey string) error

	// Attendance
	MarkPresent(registration, sessionKey string, confidence float64) (bool, error)
	SessionAttendance(sessionKey string) ([]AttendanceEntry, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB

	log          *slog.Logger
	studentCache *cache.Cache
}

// studentCacheTTL bounds how long a registration to student-id mapping
// is served without hitting the database. Enrollment changes mid-session
// are rare; five minutes is plenty.
const studentCacheTTL = 5 * time.Minute

// New creates a store instance based on the enabled output in settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: newDataStore(),
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: newDataStore(),
			Settings:  settings,
		}
	default:
		return nil
	}
}

func newDataStore() DataStore {
	return DataStore{
		log:          logging.ForService("datastore"),
		studentCache: cache.New(studentCacheTTL, 2*studentCacheTTL),
	}
}
