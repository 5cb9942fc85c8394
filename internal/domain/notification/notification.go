package notification

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of one notification row.
// Legal transitions: pending -> sent, pending -> failed, sent -> read.
// A failed notification is never resurrected; a retry produces a new row.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRead    Status = "read"
)

// Notification is one message instance for one recipient of one schedule
// execution. Corresponds to the 'notifications' table.
type Notification struct {
	ID           int64
	UserID       int64
	TemplateID   int64
	ScheduleID   int64
	DepartmentID int64
	Subject      string
	Body         string
	Status       Status
	SentAt       sql.NullTime
	ReadAt       sql.NullTime
	CreatedAt    time.Time
}
