package notification

import (
	"context"
	"time"

	"notification_platform/internal/domain/schedule"
	"notification_platform/internal/domain/user"
)

// Store defines the persistence operations of the schedule execution engine.
type Store interface {
	// SelectDueSchedules returns the schedules coarsely eligible at 'now':
	// active, template active, inside the start/end window, time-of-day
	// reached, and not already executed today. Read-only. Ordered by
	// schedule_time then schedule id for deterministic processing.
	SelectDueSchedules(ctx context.Context, now time.Time) ([]*schedule.ExecutionContext, error)

	// ExecuteScheduleUnit runs fn inside one transaction. All writes for one
	// schedule's run go through the ExecutionTx passed to fn; an error from
	// fn rolls every one of them back.
	ExecuteScheduleUnit(ctx context.Context, fn func(tx ExecutionTx) error) error
}

// ExecutionTx is the transactional write surface the executor owns for the
// duration of one schedule's run.
type ExecutionTx interface {
	// ListActiveRecipients returns the active users assigned to the schedule,
	// ordered by user id.
	ListActiveRecipients(ctx context.Context, scheduleID int64) ([]*user.User, error)

	// CreateNotification inserts n in pending status and fills n.ID and
	// n.CreatedAt.
	CreateNotification(ctx context.Context, n *Notification) error

	// CreateDeliveryLog appends one attempt record and fills entry.ID and
	// entry.CreatedAt.
	CreateDeliveryLog(ctx context.Context, entry *DeliveryLog) error

	// MarkNotificationSent transitions a pending notification to sent and
	// stamps sent_at.
	MarkNotificationSent(ctx context.Context, notificationID int64, sentAt time.Time) error

	// MarkNotificationFailed transitions a pending notification to failed.
	MarkNotificationFailed(ctx context.Context, notificationID int64) error

	// AdvanceSchedule sets last_executed and the informational next_execution
	// on the schedule row. nextExecution is nil for one-shot schedules.
	AdvanceSchedule(ctx context.Context, scheduleID int64, lastExecuted time.Time, nextExecution *time.Time) error
}
