// Package interfaces documents the core abstractions used throughout the application.
//
// The package holds no runtime code. checks.go pins every concrete type to the
// interfaces it is wired into, so a renamed or missing method fails the build
// here rather than in entrypoint.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
// Services declare the repository methods they use next to their constructor:
//
//   - lending.Store, lending.BookReader: requests and loans (internal/lending/service.go)
//   - reports.UserReader, reports.BookStore, reports.LoanReader: read views (internal/reports/service.go)
//   - booking.Store: rooms and bookings (internal/booking/service.go)
//   - resources.Store: digital resources and engagement records (internal/resources/service.go)
//   - settingsstore.Repository: key/value settings (internal/settingsstore/settingsstore.go)
//
// ## Controller Interfaces
//
// The HTTP layer depends only on the operations each controller calls, all
// declared in internal/http/stores.go: Catalog, Lending, FineRefresher,
// Bookings, Resources, ProfileEditor, LendingSettings, AuditLog,
// SettingsAuditor and TaskQueue.
//
// ## Background Work
//
//   - tasks.Reporter, tasks.FineRefresher, tasks.BookingExpirer, tasks.AuditEventCleaner:
//     what queue processors call (internal/tasks)
//   - scheduler.Enqueuer, scheduler.StatusRecorder: what the cron schedule needs (internal/scheduler)
//
// ## Files
//
//   - storage.Store: key addressed file storage (internal/storage/client.go)
//   - resources.CoverSaver, reports.CoverSaver: thumbnail generation (internal/covers)
//
// # Adding a New Storage Backend
//
// To keep uploads somewhere other than the local disk (e.g. S3):
//
//  1. Create a provider in internal/storage/providers/
//
//     type Client struct { bucket string }
//
//     func (c *Client) Save(ctx context.Context, key string, content io.Reader) error
//     func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error)
//     func (c *Client) Delete(ctx context.Context, key string) error
//
//  2. Add a compile-time check to checks.go:
//
//     var _ storage.Store = (*s3.Client)(nil)
//
//  3. Select it in entrypoint.NewServices
//
// # Adding a New Maintenance Task
//
//  1. Define the task and queue in internal/tasks/ next to maintenance.go
//  2. Register the queue in entrypoint.Run
//  3. Add it to the task list in internal/http/tasks.go and to scheduler.Maintenance
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
package interfaces
