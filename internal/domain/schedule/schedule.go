package schedule

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Type is the recurrence pattern of a schedule. Closed set, matches the
// 'schedule_type' CHECK constraint on the schedules table.
type Type string

const (
	TypeOnce    Type = "once"
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
)

// Schedule represents a recurring delivery instruction.
// Corresponds to the 'schedules' table.
type Schedule struct {
	ID              int64
	TemplateID      int64
	DepartmentID    int64
	SubDepartmentID sql.NullInt64
	Type            Type
	ScheduleTime    string // 24h "HH:MM"
	StartDate       time.Time
	EndDate         sql.NullTime
	Variables       []byte // raw JSONB payload, may be nil
	IsActive        bool
	LastExecuted    sql.NullTime
	NextExecution   sql.NullTime
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExecutionContext is a due schedule joined with everything the executor
// needs for rendering, so the per-recipient loop does no further lookups.
type ExecutionContext struct {
	ScheduleID        int64
	TemplateID        int64
	DepartmentID      int64
	SubDepartmentID   sql.NullInt64
	Type              Type
	ScheduleTime      string
	StartDate         time.Time
	EndDate           sql.NullTime
	RawVariables      []byte
	LastExecuted      sql.NullTime
	TemplateSubject   string
	TemplateBody      string
	DepartmentName    string
	SubDepartmentName sql.NullString
}

// ParseVariables decodes the stored variable payload into a flat string map.
// Scalar values are stringified; a nil/empty payload yields an empty map.
// Callers are expected to recover from an error with an empty map rather
// than abort the run.
func ParseVariables(raw []byte) (map[string]string, error) {
	vars := make(map[string]string)
	if len(raw) == 0 {
		return vars, nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return vars, fmt.Errorf("failed to decode schedule variables: %w", err)
	}
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			vars[k] = val
		case nil:
			vars[k] = ""
		default:
			vars[k] = fmt.Sprint(val)
		}
	}
	return vars, nil
}
