package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"notification_platform/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Worker ties the periodic trigger to the schedule executor. At most one
// pass runs at any instant: a tick that fires while a pass is still in
// flight is skipped, not queued.
type Worker struct {
	cronEngine  *cron.Cron
	executor    app.Executor
	logger      *logrus.Entry
	tickSpec    string
	passTimeout time.Duration

	passRunning atomic.Bool
	stopOnce    sync.Once
}

func NewWorker(
	executor app.Executor,
	logger *logrus.Entry,
	tickSpec string, // e.g. "* * * * *" (every minute)
	passTimeout time.Duration,
) *Worker {
	return &Worker{
		cronEngine:  cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		executor:    executor,
		logger:      logger,
		tickSpec:    tickSpec,
		passTimeout: passTimeout,
	}
}

// Start registers the tick job and starts the cron engine.
func (w *Worker) Start() error {
	if _, err := w.cronEngine.AddFunc(w.tickSpec, w.tick); err != nil {
		return err
	}
	w.cronEngine.Start()
	w.logger.WithField("tick_spec", w.tickSpec).Info("Schedule worker started")
	return nil
}

// tick runs one pass. The compare-and-swap guard enforces the non-overlap
// invariant; the deferred release runs even if the executor panics, so a
// crashed pass cannot wedge the worker permanently.
func (w *Worker) tick() {
	if !w.passRunning.CompareAndSwap(false, true) {
		w.logger.Warn("Previous pass still in flight, skipping this tick")
		return
	}
	defer w.passRunning.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), w.passTimeout)
	defer cancel()

	started := time.Now()
	stats, err := w.executor.RunPass(ctx, started)
	if err != nil {
		w.logger.WithError(err).Error("Worker pass failed")
		return
	}
	if stats.SchedulesSelected == 0 {
		w.logger.Debug("Worker pass completed, no due schedules")
		return
	}
	w.logger.WithFields(logrus.Fields{
		"selected":             stats.SchedulesSelected,
		"executed":             stats.SchedulesExecuted,
		"skipped":              stats.SchedulesSkipped,
		"failed":               stats.SchedulesFailed,
		"notifications_sent":   stats.NotificationsSent,
		"notifications_failed": stats.NotificationsFailed,
		"duration":             time.Since(started).String(),
	}).Info("Worker pass completed")
}

// Stop halts the trigger and waits for an in-flight pass to finish.
// Idempotent: stopping an already-stopped worker is a no-op.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping schedule worker...")
		ctx := w.cronEngine.Stop()
		<-ctx.Done()
		w.logger.Info("Schedule worker stopped")
	})
}
