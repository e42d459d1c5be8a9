package models

import "time"

// ApplicationStatus captures the workflow state of a course application.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// CourseApplication is a student's request to enroll in a course. A row is
// mutated at most once: PENDING -> APPROVED or PENDING -> REJECTED.
// Adviser and course are tagged references; display names are resolved at
// read time, never copied at write time.
type CourseApplication struct {
	ID            string            `db:"id" json:"id"`
	StudentID     string            `db:"student_id" json:"student_id"`
	CourseID      string            `db:"course_id" json:"course_id"`
	NCLevel       *string           `db:"nc_level" json:"nc_level,omitempty"`
	AdviserID     *string           `db:"adviser_id" json:"adviser_id,omitempty"`
	TrainingStart *time.Time        `db:"training_start" json:"training_start,omitempty"`
	TrainingEnd   *time.Time        `db:"training_end" json:"training_end,omitempty"`
	Status        ApplicationStatus `db:"status" json:"status"`
	Notes         *string           `db:"notes" json:"notes,omitempty"`
	AppliedAt     time.Time         `db:"applied_at" json:"applied_at"`
	ReviewedBy    *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// ApplicationDetail enriches CourseApplication with joined display fields.
type ApplicationDetail struct {
	CourseApplication
	StudentFirstName string  `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string  `db:"student_last_name" json:"student_last_name"`
	StudentULI       string  `db:"student_uli" json:"student_uli"`
	StudentEmail     string  `db:"student_email" json:"student_email"`
	CourseName       string  `db:"course_name" json:"course_name"`
	CourseNCLevel    string  `db:"course_nc_level" json:"course_nc_level"`
	AdviserName      *string `db:"adviser_name" json:"adviser_name,omitempty"`
}

// ApplicationFilter constrains the applications listing.
type ApplicationFilter struct {
	Status   ApplicationStatus
	CourseID string
	Search   string
	Page     int
	PageSize int
}
