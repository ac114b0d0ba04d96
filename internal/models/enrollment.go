package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
)

// Enrollment authorizes a student to interact with a module's quizzes.
// (student_id, module_id) is unique.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ModuleID   string           `db:"module_id" json:"module_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches an enrollment with module info for listings.
type EnrollmentDetail struct {
	Enrollment
	ModuleTitle   string `db:"module_title" json:"module_title"`
	ModuleSubject string `db:"module_subject" json:"module_subject"`
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
}
