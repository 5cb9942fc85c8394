package template

import "time"

// Template represents an authored message template.
// Corresponds to the 'templates' table; only the columns the engine reads.
type Template struct {
	ID           int64
	DepartmentID int64
	Subject      string
	Body         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
