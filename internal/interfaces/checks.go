package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/campuslib/internal/audit"
	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/booking"
	"github.com/mrlokans/campuslib/internal/covers"
	booksRepo "github.com/mrlokans/campuslib/internal/database/books"
	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	roomsRepo "github.com/mrlokans/campuslib/internal/database/rooms"
	settingsRepo "github.com/mrlokans/campuslib/internal/database/settings"
	"github.com/mrlokans/campuslib/internal/database/users"
	"github.com/mrlokans/campuslib/internal/http"
	"github.com/mrlokans/campuslib/internal/lending"
	"github.com/mrlokans/campuslib/internal/reports"
	"github.com/mrlokans/campuslib/internal/resources"
	"github.com/mrlokans/campuslib/internal/scheduler"
	"github.com/mrlokans/campuslib/internal/settingsstore"
	"github.com/mrlokans/campuslib/internal/storage"
	"github.com/mrlokans/campuslib/internal/storage/providers/local"
	"github.com/mrlokans/campuslib/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ lending.Store = (*lendingRepo.Repository)(nil)
var _ lending.BookReader = (*booksRepo.Repository)(nil)
var _ reports.BookStore = (*booksRepo.Repository)(nil)
var _ reports.LoanReader = (*lendingRepo.Repository)(nil)
var _ reports.UserReader = (*users.Repository)(nil)
var _ booking.Store = (*roomsRepo.Repository)(nil)
var _ resources.Store = (*resourcesRepo.Repository)(nil)
var _ settingsstore.Repository = (*settingsRepo.Repository)(nil)

// =============================================================================
// Domain Services (as seen by the HTTP controllers)
// =============================================================================

var _ http.Catalog = (*reports.Service)(nil)
var _ http.Lending = (*lending.Service)(nil)
var _ http.FineRefresher = (*lending.Service)(nil)
var _ http.Bookings = (*booking.Service)(nil)
var _ http.BookingExpirer = (*booking.Service)(nil)
var _ http.Resources = (*resources.Service)(nil)
var _ http.ProfileEditor = (*auth.Service)(nil)
var _ http.LendingSettings = (*settingsstore.SettingsStore)(nil)

// Fine rates flow from settings into lending and from lending into reports
var _ lending.Policy = (*settingsstore.SettingsStore)(nil)
var _ reports.FineCalculator = (*lending.Service)(nil)

// =============================================================================
// Files and Covers
// =============================================================================

var _ storage.Store = (*local.Client)(nil)
var _ http.FileOpener = (*local.Client)(nil)
var _ resources.CoverSaver = (*covers.Processor)(nil)
var _ reports.CoverSaver = (*covers.Processor)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ lending.Auditor = (*audit.Service)(nil)
var _ booking.Auditor = (*audit.Service)(nil)
var _ resources.Auditor = (*audit.Service)(nil)
var _ reports.Auditor = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ http.SettingsAuditor = (*audit.Service)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.StatusRecorder = (*settingsstore.SettingsStore)(nil)
var _ tasks.Reporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.FineRefresher = (*lending.Service)(nil)
var _ tasks.BookingExpirer = (*booking.Service)(nil)
