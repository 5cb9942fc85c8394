package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notification_platform/internal/domain/channel"
	"notification_platform/internal/domain/notification"
	"notification_platform/internal/domain/schedule"
	"notification_platform/internal/domain/template"
	"notification_platform/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// Executor defines the operation the worker loop invokes once per tick.
type Executor interface {
	// RunPass selects every due schedule and executes each one inside its own
	// transaction. A non-nil error means the pass itself could not run (e.g.
	// the selector query failed); per-schedule failures are absorbed into the
	// returned stats.
	RunPass(ctx context.Context, now time.Time) (PassStats, error)
}

// PassStats summarizes one worker pass for logging.
type PassStats struct {
	SchedulesSelected   int
	SchedulesExecuted   int
	SchedulesSkipped    int
	SchedulesFailed     int
	NotificationsSent   int
	NotificationsFailed int
}

// ExecutorService implements the schedule execution engine: per due schedule,
// re-validate due-ness, fan out to recipients, render, dispatch, record the
// outcome, and advance the schedule's recurrence state, all in one
// transaction per schedule.
type ExecutorService struct {
	store          notification.Store
	dispatcher     channel.Dispatcher
	emailChannelID int64
	logger         *logrus.Entry
}

func NewExecutorService(
	store notification.Store,
	dispatcher channel.Dispatcher,
	emailChannelID int64,
	logger *logrus.Entry,
) *ExecutorService {
	return &ExecutorService{
		store:          store,
		dispatcher:     dispatcher,
		emailChannelID: emailChannelID,
		logger:         logger,
	}
}

// RunPass processes all schedules due at 'now', sequentially in the
// selector's order. Each schedule runs in its own transaction, so one broken
// schedule cannot poison its siblings.
func (s *ExecutorService) RunPass(ctx context.Context, now time.Time) (PassStats, error) {
	var stats PassStats

	dueSchedules, err := s.store.SelectDueSchedules(ctx, now)
	if err != nil {
		return stats, fmt.Errorf("failed to select due schedules: %w", err)
	}
	stats.SchedulesSelected = len(dueSchedules)
	if len(dueSchedules) == 0 {
		return stats, nil
	}
	s.logger.WithField("due_schedules", len(dueSchedules)).Info("Executing due schedules")

	for _, execCtx := range dueSchedules {
		sent, failed, outcome := s.runSchedule(ctx, execCtx, now)
		stats.NotificationsSent += sent
		stats.NotificationsFailed += failed
		switch outcome {
		case outcomeExecuted:
			stats.SchedulesExecuted++
		case outcomeSkipped:
			stats.SchedulesSkipped++
		case outcomeFailed:
			stats.SchedulesFailed++
		}
	}
	return stats, nil
}

type scheduleOutcome int

const (
	outcomeExecuted scheduleOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// runSchedule executes one schedule's unit of work. Any error escaping the
// transactional closure rolls back everything written for this schedule;
// last_executed stays untouched so the schedule is retried on the next tick.
func (s *ExecutorService) runSchedule(ctx context.Context, execCtx *schedule.ExecutionContext, now time.Time) (sent, failed int, outcome scheduleOutcome) {
	log := s.logger.WithField("schedule_id", execCtx.ScheduleID)
	outcome = outcomeExecuted

	err := s.store.ExecuteScheduleUnit(ctx, func(tx notification.ExecutionTx) error {
		// Authoritative due-ness check. The selector only pre-filters; the
		// recurrence policy decides, guarding against clock races between the
		// selection query and this point.
		var lastExecuted *time.Time
		if execCtx.LastExecuted.Valid {
			lastExecuted = &execCtx.LastExecuted.Time
		}
		if !schedule.IsDueToday(execCtx.Type, execCtx.StartDate, lastExecuted, now) {
			log.Info("Schedule no longer due on re-check, skipping")
			outcome = outcomeSkipped
			return nil
		}

		recipients, err := tx.ListActiveRecipients(ctx, execCtx.ScheduleID)
		if err != nil {
			return fmt.Errorf("failed to list recipients: %w", err)
		}
		if len(recipients) == 0 {
			// Not an error: recipients may be assigned later the same day, in
			// which case a later tick picks the schedule up again.
			log.Warn("Schedule has no active recipients, nothing to send")
			outcome = outcomeSkipped
			return nil
		}

		scheduleVars, err := schedule.ParseVariables(execCtx.RawVariables)
		if err != nil {
			log.WithError(err).Warn("Malformed schedule variables, substituting empty set")
		}

		for _, recipient := range recipients {
			delivered, err := s.processRecipient(ctx, tx, execCtx, recipient, scheduleVars, now, log)
			if err != nil {
				// Store failure mid-unit: abort and roll back the whole
				// schedule. Dispatch failures never land here.
				return err
			}
			if delivered {
				sent++
			} else {
				failed++
			}
		}

		next := schedule.NextExecution(execCtx.Type, now, execCtx.ScheduleTime)
		if err := tx.AdvanceSchedule(ctx, execCtx.ScheduleID, now, next); err != nil {
			return fmt.Errorf("failed to advance schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		// Rolled back in full; counters for this schedule are meaningless.
		log.WithError(err).Error("Schedule run aborted and rolled back; will retry next tick")
		return 0, 0, outcomeFailed
	}

	if outcome == outcomeExecuted {
		log.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Schedule executed")
	}
	return sent, failed, outcome
}

// processRecipient renders, persists and dispatches one notification. A
// dispatch failure is recorded against this recipient only and never
// interrupts the rest of the batch; a store error aborts the unit of work.
func (s *ExecutorService) processRecipient(
	ctx context.Context,
	tx notification.ExecutionTx,
	execCtx *schedule.ExecutionContext,
	recipient *user.User,
	scheduleVars map[string]string,
	now time.Time,
	log *logrus.Entry,
) (bool, error) {
	vars := template.MergeVariables(scheduleVars, recipientVariables(execCtx, recipient))
	subject := template.Render(execCtx.TemplateSubject, vars)
	body := template.Render(execCtx.TemplateBody, vars)

	notif := &notification.Notification{
		UserID:       recipient.ID,
		TemplateID:   execCtx.TemplateID,
		ScheduleID:   execCtx.ScheduleID,
		DepartmentID: execCtx.DepartmentID,
		Subject:      subject,
		Body:         body,
		Status:       notification.StatusPending,
	}
	if err := tx.CreateNotification(ctx, notif); err != nil {
		return false, fmt.Errorf("failed to create notification for user %d: %w", recipient.ID, err)
	}

	result := s.dispatcher.Send(ctx, recipient.Email, subject, body, recipient.FullName())

	entry := &notification.DeliveryLog{
		NotificationID: notif.ID,
		ChannelID:      s.emailChannelID,
		AttemptCount:   1,
	}
	if result.Success {
		entry.Status = notification.DeliveryStatusDelivered
		entry.DeliveredAt = sql.NullTime{Time: now, Valid: true}
	} else {
		entry.Status = notification.DeliveryStatusFailed
		entry.ErrorMessage = sql.NullString{String: result.ErrorDetail, Valid: result.ErrorDetail != ""}
	}
	if err := tx.CreateDeliveryLog(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to write delivery log for notification %d: %w", notif.ID, err)
	}

	if result.Success {
		if err := tx.MarkNotificationSent(ctx, notif.ID, now); err != nil {
			return false, fmt.Errorf("failed to mark notification %d sent: %w", notif.ID, err)
		}
		return true, nil
	}

	log.WithFields(logrus.Fields{
		"user_id": recipient.ID,
		"error":   result.ErrorDetail,
	}).Warn("Dispatch failed for recipient")
	if err := tx.MarkNotificationFailed(ctx, notif.ID); err != nil {
		return false, fmt.Errorf("failed to mark notification %d failed: %w", notif.ID, err)
	}
	return false, nil
}

// recipientVariables builds the identity and context fields that always
// override schedule-authored variables of the same name.
func recipientVariables(execCtx *schedule.ExecutionContext, recipient *user.User) map[string]string {
	vars := map[string]string{
		"first_name":      recipient.FirstName,
		"name":            recipient.FullName(),
		"email":           recipient.Email,
		"department_name": execCtx.DepartmentName,
	}
	if recipient.LastName.Valid {
		vars["last_name"] = recipient.LastName.String
	}
	if recipient.Phone.Valid {
		vars["phone"] = recipient.Phone.String
	}
	if execCtx.SubDepartmentName.Valid {
		vars["sub_department_name"] = execCtx.SubDepartmentName.String
	}
	return vars
}
