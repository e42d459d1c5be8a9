package models

import "time"

// StudentStatus tracks a student's standing in the registration workflow.
type StudentStatus string

const (
	StudentStatusPending   StudentStatus = "PENDING"
	StudentStatusApproved  StudentStatus = "APPROVED"
	StudentStatusRejected  StudentStatus = "REJECTED"
	StudentStatusCompleted StudentStatus = "COMPLETED"
)

// Student represents a registered learner. The course assignment columns hold
// only the most recently approved application; course_applications rows are
// the enrollment history.
type Student struct {
	ID            string        `db:"id" json:"id"`
	ULI           string        `db:"uli" json:"uli"`
	FirstName     string        `db:"first_name" json:"first_name"`
	LastName      string        `db:"last_name" json:"last_name"`
	Email         string        `db:"email" json:"email"`
	Phone         string        `db:"phone" json:"phone"`
	Address       string        `db:"address" json:"address"`
	PhotoPath     *string       `db:"photo_path" json:"photo_path,omitempty"`
	Status        StudentStatus `db:"status" json:"status"`
	CourseID      *string       `db:"course_id" json:"course_id,omitempty"`
	NCLevel       *string       `db:"nc_level" json:"nc_level,omitempty"`
	AdviserID     *string       `db:"adviser_id" json:"adviser_id,omitempty"`
	TrainingStart *time.Time    `db:"training_start" json:"training_start,omitempty"`
	TrainingEnd   *time.Time    `db:"training_end" json:"training_end,omitempty"`
	ApprovedBy    *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	Active        bool          `db:"active" json:"active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    StudentStatus
	CourseID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with resolved reference names.
type StudentDetail struct {
	Student
	CourseName  *string `db:"course_name" json:"course_name,omitempty"`
	AdviserName *string `db:"adviser_name" json:"adviser_name,omitempty"`
}
