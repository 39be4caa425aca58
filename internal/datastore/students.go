// students.go student and course accessors
package datastore

import (
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// UpsertStudent inserts or updates a student by registration number.
func (ds *DataStore) UpsertStudent(student *Student) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "email", "phone", "updated_at"}),
	}).Create(student).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("registration", student.RegistrationNumber).
			Build()
	}
	ds.studentCache.Delete(student.RegistrationNumber)
	return nil
}

// GetStudentByRegistration fetches one student by registration number.
func (ds *DataStore) GetStudentByRegistration(registration string) (Student, error) {
	var student Student
	err := ds.DB.Where("registration_number = ?", registration).First(&student).Error
	if err != nil {
		return Student{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("registration", registration).
			Build()
	}
	return student, nil
}

// GetAllStudents returns every enrolled student.
func (ds *DataStore) GetAllStudents() ([]Student, error) {
	var students []Student
	if err := ds.DB.Order("registration_number").Find(&students).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return students, nil
}

// ResolveRegistration reports whether the registration number belongs to
// a known student. Resolutions are cached; the training pipeline calls
// this once per store directory.
func (ds *DataStore) ResolveRegistration(registration string) (bool, error) {
	if _, found := ds.studentCache.Get(registration); found {
		return true, nil
	}

	student, err := ds.GetStudentByRegistration(registration)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	ds.studentCache.Set(registration, student.ID, cache.DefaultExpiration)
	return true, nil
}

// studentID returns the primary key for a registration number, through
// the cache.
func (ds *DataStore) studentID(registration string) (uint, error) {
	if v, found := ds.studentCache.Get(registration); found {
		if id, ok := v.(uint); ok {
			return id, nil
		}
	}
	student, err := ds.GetStudentByRegistration(registration)
	if err != nil {
		return 0, err
	}
	ds.studentCache.Set(registration, student.ID, cache.DefaultExpiration)
	return student.ID, nil
}

// UpsertCourse inserts or updates a course by code.
func (ds *DataStore) UpsertCourse(course *Course) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "lecturer", "updated_at"}),
	}).Create(course).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("code", course.Code).
			Build()
	}
	return nil
}

// GetCourseByCode fetches one course by its code.
func (ds *DataStore) GetCourseByCode(code string) (Course, error) {
	var course Course
	if err := ds.DB.Where("code = ?", code).First(&course).Error; err != nil {
		return Course{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("code", code).
			Build()
	}
	return course, nil
}
