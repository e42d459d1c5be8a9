package models

import "time"

// Course represents an offered training course.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Name          string    `db:"name" json:"name"`
	NCLevel       string    `db:"nc_level" json:"nc_level"`
	Description   string    `db:"description" json:"description"`
	DurationHours int       `db:"duration_hours" json:"duration_hours"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
