// internal/infra/database/postgres_execution_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notification_platform/internal/domain/notification"
	"notification_platform/internal/domain/schedule"
	"notification_platform/internal/domain/user"
)

var ErrNotificationNotPending = fmt.Errorf("notification is not in pending status")

// PostgresExecutionRepository implements notification.Store on database/sql.
type PostgresExecutionRepository struct {
	db *sql.DB
}

func NewPostgresExecutionRepository(db *sql.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

// SelectDueSchedules applies the coarse eligibility filters in SQL and joins
// template and department context so the executor never does per-row lookups.
// The authoritative due-ness decision stays with the recurrence policy.
func (r *PostgresExecutionRepository) SelectDueSchedules(ctx context.Context, now time.Time) ([]*schedule.ExecutionContext, error) {
	query := `SELECT s.id, s.template_id, s.department_id, s.sub_department_id,
                      s.schedule_type, s.schedule_time, s.start_date, s.end_date,
                      s.variables, s.last_executed,
                      t.subject, t.body, d.name, sd.name
               FROM schedules s
               JOIN templates t ON t.id = s.template_id AND t.is_active = TRUE
               JOIN departments d ON d.id = s.department_id
               LEFT JOIN sub_departments sd ON sd.id = s.sub_department_id
               WHERE s.is_active = TRUE
                 AND s.start_date <= $1::date
                 AND (s.end_date IS NULL OR s.end_date >= $1::date)
                 AND s.schedule_time <= $2
                 AND (s.last_executed IS NULL OR s.last_executed::date < $1::date)
               ORDER BY s.schedule_time ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, now, now.Format("15:04"))
	if err != nil {
		return nil, fmt.Errorf("error querying due schedules: %w", err)
	}
	defer rows.Close()

	contexts := make([]*schedule.ExecutionContext, 0)
	for rows.Next() {
		ec := schedule.ExecutionContext{}
		if err := rows.Scan(
			&ec.ScheduleID, &ec.TemplateID, &ec.DepartmentID, &ec.SubDepartmentID,
			&ec.Type, &ec.ScheduleTime, &ec.StartDate, &ec.EndDate,
			&ec.RawVariables, &ec.LastExecuted,
			&ec.TemplateSubject, &ec.TemplateBody, &ec.DepartmentName, &ec.SubDepartmentName,
		); err != nil {
			return nil, fmt.Errorf("error scanning due schedule row: %w", err)
		}
		contexts = append(contexts, &ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due schedule rows: %w", err)
	}
	return contexts, nil
}

// ExecuteScheduleUnit wraps fn in one transaction. An error from fn (or from
// commit) rolls back every write made through the ExecutionTx.
func (r *PostgresExecutionRepository) ExecuteScheduleUnit(ctx context.Context, fn func(tx notification.ExecutionTx) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schedule transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&executionTx{txn: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule transaction: %w", err)
	}
	return nil
}

// executionTx implements notification.ExecutionTx over one *sql.Tx.
type executionTx struct {
	txn *sql.Tx
}

func (t *executionTx) ListActiveRecipients(ctx context.Context, scheduleID int64) ([]*user.User, error) {
	query := `SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.department_id, u.is_active
               FROM users u
               JOIN schedule_recipients sr ON sr.user_id = u.id
               WHERE sr.schedule_id = $1 AND u.is_active = TRUE
               ORDER BY u.id`
	rows, err := t.txn.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("error querying schedule recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]*user.User, 0)
	for rows.Next() {
		u := user.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.DepartmentID, &u.IsActive); err != nil {
			return nil, fmt.Errorf("error scanning recipient row: %w", err)
		}
		recipients = append(recipients, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient rows: %w", err)
	}
	return recipients, nil
}

func (t *executionTx) CreateNotification(ctx context.Context, n *notification.Notification) error {
	query := `INSERT INTO notifications (user_id, template_id, schedule_id, department_id, subject, body, status)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`
	err := t.txn.QueryRowContext(ctx, query,
		n.UserID, n.TemplateID, n.ScheduleID, n.DepartmentID, n.Subject, n.Body, n.Status,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (t *executionTx) CreateDeliveryLog(ctx context.Context, entry *notification.DeliveryLog) error {
	query := `INSERT INTO delivery_logs (notification_id, channel_id, status, error_message, attempt_count, delivered_at)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at`
	err := t.txn.QueryRowContext(ctx, query,
		entry.NotificationID, entry.ChannelID, entry.Status, entry.ErrorMessage, entry.AttemptCount, entry.DeliveredAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating delivery log entry: %w", err)
	}
	return nil
}

// MarkNotificationSent enforces the pending->sent transition in the WHERE
// clause; updating a row in any other status is an error.
func (t *executionTx) MarkNotificationSent(ctx context.Context, notificationID int64, sentAt time.Time) error {
	return t.markNotification(ctx, notificationID, notification.StatusSent, sql.NullTime{Time: sentAt, Valid: true})
}

func (t *executionTx) MarkNotificationFailed(ctx context.Context, notificationID int64) error {
	return t.markNotification(ctx, notificationID, notification.StatusFailed, sql.NullTime{})
}

func (t *executionTx) markNotification(ctx context.Context, notificationID int64, status notification.Status, sentAt sql.NullTime) error {
	query := `UPDATE notifications
               SET status = $1, sent_at = $2
               WHERE id = $3 AND status = $4`
	res, err := t.txn.ExecContext(ctx, query, status, sentAt, notificationID, notification.StatusPending)
	if err != nil {
		return fmt.Errorf("error updating notification %d to %s: %w", notificationID, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for notification %d: %w", notificationID, err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %d: %w", notificationID, ErrNotificationNotPending)
	}
	return nil
}

func (t *executionTx) AdvanceSchedule(ctx context.Context, scheduleID int64, lastExecuted time.Time, nextExecution *time.Time) error {
	var next sql.NullTime
	if nextExecution != nil {
		next = sql.NullTime{Time: *nextExecution, Valid: true}
	}
	query := `UPDATE schedules
               SET last_executed = $1, next_execution = $2, updated_at = NOW()
               WHERE id = $3`
	if _, err := t.txn.ExecContext(ctx, query, lastExecuted, next, scheduleID); err != nil {
		return fmt.Errorf("error advancing schedule %d: %w", scheduleID, err)
	}
	return nil
}
