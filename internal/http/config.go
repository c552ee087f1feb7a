package http

import (
	"github.com/mrlokans/campuslib/internal/audit"
	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	Catalog   Catalog
	Lending   Lending
	Fines     FineRefresher
	Bookings  Bookings
	Expirer   BookingExpirer
	Resources Resources
	Settings  LendingSettings
	Audit     *audit.Service

	// Authentication
	AuthService    *auth.Service
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Task queue client (optional). Leave nil to run maintenance inline.
	TaskQueue TaskQueue

	// Uploads
	Files         FileOpener
	MediaDir      string
	MaxUploadSize int64

	// Application info
	Version  string
	DemoMode bool
}
