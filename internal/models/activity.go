package models

import "time"

// Activity action constants recorded by mutating handlers.
const (
	ActivityActionLogin              = "LOGIN"
	ActivityActionLogout             = "LOGOUT"
	ActivityActionPasswordChange     = "PASSWORD_CHANGE"
	ActivityActionStudentCreate      = "STUDENT_CREATE"
	ActivityActionStudentUpdate      = "STUDENT_UPDATE"
	ActivityActionStudentDeactivate  = "STUDENT_DEACTIVATE"
	ActivityActionStudentPhotoUpload = "STUDENT_PHOTO_UPLOAD"
	ActivityActionAdviserCreate      = "ADVISER_CREATE"
	ActivityActionAdviserUpdate      = "ADVISER_UPDATE"
	ActivityActionAdviserDeactivate  = "ADVISER_DEACTIVATE"
	ActivityActionCourseCreate       = "COURSE_CREATE"
	ActivityActionCourseUpdate       = "COURSE_UPDATE"
	ActivityActionCourseDeactivate   = "COURSE_DEACTIVATE"
	ActivityActionApplicationCreate  = "APPLICATION_CREATE"
	ActivityActionApplicationApprove = "APPLICATION_APPROVE"
	ActivityActionApplicationReject  = "APPLICATION_REJECT"
)

// ActivityLog is a best-effort audit record written after mutating actions.
type ActivityLog struct {
	ID          string    `db:"id" json:"id"`
	ActorType   string    `db:"actor_type" json:"actor_type"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    *string   `db:"entity_id" json:"entity_id,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActivityFilter constrains the activity listing.
type ActivityFilter struct {
	Action     string
	EntityType string
	ActorID    string
	Page       int
	PageSize   int
}
