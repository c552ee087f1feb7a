package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/campuslib/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer stores tasks for the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// StatusRecorder keeps the outcome of the last run for the staff settings page.
type StatusRecorder interface {
	SetMaintenanceStatus(status, message string) error
}

// Maintenance enqueues the nightly fine refresh, booking expiry and audit
// cleanup on a cron schedule. The work itself runs on the task queue.
type Maintenance struct {
	schedule      string
	retentionDays int
	queue         Enqueuer
	status        StatusRecorder

	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.RWMutex
	running bool
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule is empty")
	}
	_, err := parser.Parse(schedule)
	return err
}

// NewMaintenance creates a maintenance scheduler.
func NewMaintenance(schedule string, retentionDays int, queue Enqueuer, status StatusRecorder) *Maintenance {
	return &Maintenance{
		schedule:      schedule,
		retentionDays: retentionDays,
		queue:         queue,
		status:        status,
		cron:          cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the maintenance job. The scheduler stops when ctx is done.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if err := ValidateSchedule(m.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", m.schedule, err)
	}

	entryID, err := m.cron.AddFunc(m.schedule, func() {
		if err := m.RunNow(context.Background()); err != nil {
			log.Printf("Maintenance: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	m.entryID = entryID
	m.cron.Start()
	m.running = true

	log.Printf("Maintenance scheduler: started with schedule '%s'", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop waits for a running job and stops the scheduler.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	<-m.cron.Stop().Done()
	m.cron.Remove(m.entryID)
	m.running = false

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow enqueues one round of maintenance tasks and records the outcome.
func (m *Maintenance) RunNow(ctx context.Context) error {
	ids, err := m.queue.Enqueue(ctx,
		tasks.RefreshFinesTask{},
		tasks.ExpireBookingsTask{},
		tasks.CleanupAuditEventsTask{RetentionDays: m.retentionDays},
	)
	if err != nil {
		err = fmt.Errorf("enqueue maintenance tasks: %w", err)
		m.record("failed", err.Error())
		return err
	}

	m.record("success", fmt.Sprintf("Enqueued %d maintenance tasks", len(ids)))
	return nil
}

func (m *Maintenance) record(status, message string) {
	if m.status == nil {
		return
	}
	if err := m.status.SetMaintenanceStatus(status, message); err != nil {
		log.Printf("Maintenance: failed to record status: %v", err)
	}
}

// IsRunning returns whether the scheduler is active
func (m *Maintenance) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// NextRun returns when the next maintenance round will be enqueued.
func (m *Maintenance) NextRun() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.running {
		return nil
	}
	entry := m.cron.Entry(m.entryID)
	if entry.ID == 0 {
		return nil
	}
	next := entry.Next
	return &next
}
