// attendance.go session lifecycle and the idempotent attendance write
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// OpenSession creates a class session for the given course, or returns
// the existing one when the key is already open.
func (ds *DataStore) OpenSession(courseCode, sessionKey string) (*ClassSession, error) {
	course, err := ds.GetCourseByCode(courseCode)
	if err != nil {
		return nil, err
	}

	session := &ClassSession{
		SessionKey: sessionKey,
		CourseID:   course.ID,
		StartedAt:  time.Now(),
	}
	err = ds.DB.Where(ClassSession{SessionKey: sessionKey}).
		FirstOrCreate(session).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session", sessionKey).
			Build()
	}
	return session, nil
}

// CloseSession records the end time of a session.
func (ds *DataStore) CloseSession(sessionKey string) error {
	now := time.Now()
	result := ds.DB.Model(&ClassSession{}).
		Where("session_key = ?", sessionKey).
		Update("ended_at", &now)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session", sessionKey).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no open session with key %s", sessionKey).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// MarkPresent writes one attendance record for (student, session). The
// write is idempotent: a duplicate pair returns (false, nil), it is a
// no-op signal rather than an error. The unique composite index backs
// this up even across process restarts.
func (ds *DataStore) MarkPresent(registration, sessionKey string, confidence float64) (bool, error) {
	studentID, err := ds.studentID(registration)
	if err != nil {
		return false, err
	}

	var session ClassSession
	if err := ds.DB.Where("session_key = ?", sessionKey).First(&session).Error; err != nil {
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session", sessionKey).
			Build()
	}

	record := AttendanceRecord{
		StudentID:      studentID,
		ClassSessionID: session.ID,
		Confidence:     confidence,
		MarkedAt:       time.Now(),
	}
	if err := ds.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("registration", registration).
			Context("session", sessionKey).
			Build()
	}

	ds.log.Info("attendance marked",
		"registration", registration, "session", sessionKey, "confidence", confidence)
	return true, nil
}

// SessionAttendance returns the marked students of a session in marking
// order, joined with their registration details.
func (ds *DataStore) SessionAttendance(sessionKey string) ([]AttendanceEntry, error) {
	var entries []AttendanceEntry
	err := ds.DB.Model(&AttendanceRecord{}).
		Select("students.registration_number, students.first_name, students.last_name, attendance_records.confidence, attendance_records.marked_at").
		Joins("JOIN students ON students.id = attendance_records.student_id").
		Joins("JOIN class_sessions ON class_sessions.id = attendance_records.class_session_id").
		Where("class_sessions.session_key = ?", sessionKey).
		Order("attendance_records.marked_at").
		Scan(&entries).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session", sessionKey).
			Build()
	}
	return entries, nil
}
