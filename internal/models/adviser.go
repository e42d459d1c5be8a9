package models

import "time"

// Adviser represents a training adviser assignable to approved applications.
type Adviser struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Specialization string    `db:"specialization" json:"specialization"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AdviserFilter captures filtering criteria for listing advisers.
type AdviserFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
