package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// Reporter records the outcome of a task run.
type Reporter interface {
	LogTask(action, description string, err error)
}

// FineRefresher stores the current fine of every open loan.
type FineRefresher interface {
	RefreshFines(ctx context.Context) (int, error)
}

// BookingExpirer rejects pending bookings whose date has passed.
type BookingExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

func retainFailed() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}

func report(reporter Reporter, action, description string, err error) {
	if reporter != nil {
		reporter.LogTask(action, description, err)
	}
}

// RefreshFinesTask snapshots the fine of each unreturned loan.
type RefreshFinesTask struct {
	RequestedBy uint `json:"requested_by,omitempty"`
}

// Config returns the queue configuration for fine refresh tasks.
func (t RefreshFinesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_fines",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention:   retainFailed(),
	}
}

// RefreshFinesProcessor creates a processor function for RefreshFinesTask.
func RefreshFinesProcessor(fines FineRefresher, reporter Reporter) backlite.QueueProcessor[RefreshFinesTask] {
	return func(ctx context.Context, task RefreshFinesTask) error {
		if fines == nil {
			return fmt.Errorf("fine refresher not configured")
		}

		updated, err := fines.RefreshFines(ctx)
		if err != nil {
			err = fmt.Errorf("refresh fines: %w", err)
			report(reporter, "refresh_fines", "fine refresh failed", err)
			return err
		}

		msg := fmt.Sprintf("updated fines on %d loans", updated)
		log.Printf("[TASK] Refreshed fines: %s", msg)
		report(reporter, "refresh_fines", msg, nil)
		return nil
	}
}

// NewRefreshFinesQueue creates a backlite queue for fine refresh tasks.
func NewRefreshFinesQueue(fines FineRefresher, reporter Reporter) backlite.Queue {
	return backlite.NewQueue(RefreshFinesProcessor(fines, reporter))
}

// ExpireBookingsTask rejects pending room bookings for dates already gone.
type ExpireBookingsTask struct{}

// Config returns the queue configuration for booking expiry tasks.
func (t ExpireBookingsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "expire_bookings",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   retainFailed(),
	}
}

// ExpireBookingsProcessor creates a processor function for ExpireBookingsTask.
func ExpireBookingsProcessor(bookings BookingExpirer, reporter Reporter) backlite.QueueProcessor[ExpireBookingsTask] {
	return func(ctx context.Context, task ExpireBookingsTask) error {
		if bookings == nil {
			return fmt.Errorf("booking expirer not configured")
		}

		expired, err := bookings.ExpireStale(ctx)
		if err != nil {
			err = fmt.Errorf("expire bookings: %w", err)
			report(reporter, "expire_bookings", "booking expiry failed", err)
			return err
		}

		msg := fmt.Sprintf("expired %d pending bookings", expired)
		log.Printf("[TASK] %s", msg)
		report(reporter, "expire_bookings", msg, nil)
		return nil
	}
}

// NewExpireBookingsQueue creates a backlite queue for booking expiry tasks.
func NewExpireBookingsQueue(bookings BookingExpirer, reporter Reporter) backlite.Queue {
	return backlite.NewQueue(ExpireBookingsProcessor(bookings, reporter))
}
