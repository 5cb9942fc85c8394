package user

import (
	"database/sql"
	"time"
)

// User represents a notification recipient.
// Corresponds to the 'users' table; only the columns the engine reads.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     sql.NullString
	Phone        sql.NullString
	DepartmentID int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name, tolerating a missing last name.
func (u *User) FullName() string {
	if u.LastName.Valid && u.LastName.String != "" {
		return u.FirstName + " " + u.LastName.String
	}
	return u.FirstName
}
