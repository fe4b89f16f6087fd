// Package scheduling runs update cycles at a fixed interval until the process is
// interrupted, serialising cycles through a lock shared with the HTTP API.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// CycleFunc runs one update cycle and returns its metric.
type CycleFunc func(ctx context.Context) *metrics.Metric

// NewLock returns an available update lock. Holding the lock means taking its
// single value; it is returned when the cycle finishes.
func NewLock() chan bool {
	lock := make(chan bool, 1)
	lock <- true

	return lock
}

// Spec returns the cron expression for a fixed interval.
func Spec(interval time.Duration) string {
	return fmt.Sprintf("@every %ds", int(interval.Seconds()))
}

// WaitForRunningUpdate waits for any currently running update to complete before proceeding with shutdown.
//
// Parameters:
//   - ctx: The context for cancellation, allowing early shutdown on context timeout.
//   - lock: The channel used to synchronize updates.
func WaitForRunningUpdate(ctx context.Context, lock chan bool) {
	const updateWaitTimeout = 60 * time.Second

	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case v := <-lock:
			lock <- v

			logrus.Debug("Lock acquired, update finished.")
		case <-time.After(updateWaitTimeout):
			logrus.Warn("Timeout waiting for running update to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Warn("Context cancelled while waiting for running update.")
		}
	} else {
		logrus.Debug("No update running, lock available.")
	}
}

// RunLocked runs cycle if the lock is free and records the metric. A busy lock
// records a skipped cycle instead.
//
// Returns:
//   - bool: True if the cycle ran.
func RunLocked(ctx context.Context, lock chan bool, cycle CycleFunc) bool {
	select {
	case v := <-lock:
		defer func() { lock <- v }()

		metric := cycle(ctx)
		metrics.Default().RegisterCycle(metric)
		logrus.Debug("Update cycle completed")

		return true
	default:
		metrics.Default().RegisterCycle(nil)
		logrus.Debug("Skipped another update already running.")

		return false
	}
}

// RunOnSchedule runs cycle immediately and then every interval until ctx is
// cancelled or SIGINT/SIGTERM is received.
//
// Parameters:
//   - ctx: Lifecycle of the scheduler.
//   - interval: Time between cycles.
//   - lock: Update lock shared with the HTTP API, or nil to create one.
//   - cycle: Function running one update cycle.
//   - writeStartupMessage: Receives the time of the next scheduled run.
//   - notifier: Closed on shutdown so queued notifications are flushed; may be nil.
//
// Returns:
//   - error: Non-nil if the interval cannot be scheduled.
func RunOnSchedule(
	ctx context.Context,
	interval time.Duration,
	lock chan bool,
	cycle CycleFunc,
	writeStartupMessage func(next time.Time),
	notifier types.Notifier,
) error {
	if lock == nil {
		lock = NewLock()
	}

	if interval < time.Second {
		return fmt.Errorf("%w: %s", errInvalidInterval, interval)
	}

	scheduler := cron.New()

	logNext := func() {
		if entries := scheduler.Entries(); len(entries) > 0 {
			logrus.Info("Next check at " + entries[0].Next.Format(time.RFC3339))
		}
	}

	err := scheduler.AddFunc(Spec(interval), func() {
		RunLocked(ctx, lock, cycle)
		logNext()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errScheduleFailed, err)
	}

	if writeStartupMessage != nil {
		writeStartupMessage(scheduler.Entries()[0].Schedule.Next(time.Now()))
	}

	RunLocked(ctx, lock, cycle)

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case <-interrupt:
		logrus.Info("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running update to be finished...")

	WaitForRunningUpdate(ctx, lock)

	if notifier != nil {
		notifier.Close()
	}

	logrus.Debug("Scheduler stopped and update completed.")

	return nil
}
