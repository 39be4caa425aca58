// model.go data model for the attendance store
package datastore

import "time"

// Student is one enrolled student. RegistrationNumber is the stable
// external identity key; the recognizer's integer labels are never
// persisted here because they are valid only for one trained model.
type Student struct {
	ID                 uint   `gorm:"primaryKey"`
	RegistrationNumber string `gorm:"uniqueIndex;not null"`
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Course is one taught unit that sessions belong to.
type Course struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;not null"`
	Title     string
	Lecturer  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassSession is one attendance-taking interval tied to a class
// meeting. SessionKey is the caller-visible handle.
type ClassSession struct {
	ID         uint   `gorm:"primaryKey"`
	SessionKey string `gorm:"uniqueIndex;not null"`
	CourseID   uint   `gorm:"index"`
	Course     Course
	StartedAt  time.Time
	EndedAt    *time.Time
}

// AttendanceRecord marks one student present in one session. The unique
// composite index is the durable idempotency check: an in-memory
// seen-set is the fast path within a running session, this index is the
// safety net across process restarts.
type AttendanceRecord struct {
	ID             uint `gorm:"primaryKey"`
	StudentID      uint `gorm:"not null;uniqueIndex:idx_attendance_student_session"`
	ClassSessionID uint `gorm:"not null;uniqueIndex:idx_attendance_student_session"`
	Student        Student
	Confidence     float64
	MarkedAt       time.Time `gorm:"index"`
}

// AttendanceEntry is the join row returned for exports and summaries.
type AttendanceEntry struct {
	RegistrationNumber string
	FirstName          string
	LastName           string
	Confidence         float64
	MarkedAt           time.Time
}
