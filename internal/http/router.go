package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/demo"
	"github.com/mrlokans/campuslib/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
		router.Use(exposeCSRFToken())
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	router.Use(auth.NewMiddleware(cfg.AuthService, cfg.SessionManager).Handler())
	router.Use(demo.NewMiddleware(cfg.DemoMode).Handler())

	var auditLog AuditLog
	var settingsAuditor SettingsAuditor
	if cfg.Audit != nil {
		auditLog = cfg.Audit
		settingsAuditor = cfg.Audit
	}

	health := NewHealthController(cfg.Database, cfg.Version, cfg.MediaDir)
	profile := NewProfileController(cfg.Catalog, cfg.AuthService)
	tokens := auth.NewAPITokenController(cfg.AuthService)
	books := NewBooksController(cfg.Catalog, cfg.Lending, cfg.MaxUploadSize)
	loans := NewLoansController(cfg.Catalog, cfg.Lending)
	rooms := NewRoomsController(cfg.Bookings)
	resources := NewResourcesController(cfg.Resources, cfg.MaxUploadSize)
	reports := NewReportsController(cfg.Catalog)
	settings := NewSettingsController(cfg.Settings, settingsAuditor)
	tasks := NewTasksController(cfg.TaskQueue, cfg.Fines, cfg.Expirer)
	covers := NewCoversController(cfg.Catalog, cfg.Resources, cfg.Files)

	// Public endpoints
	router.GET("/health", health.Status)
	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
		router.POST("/profile/password", cfg.AuthController.ChangePassword)
	}

	// Any signed-in user
	router.GET("/profile", profile.Profile)
	router.POST("/profile", profile.UpdateProfile)
	router.POST("/profile/tokens", tokens.GenerateToken)
	router.DELETE("/profile/tokens", tokens.RevokeToken)

	router.GET("/books", books.ListBooks)
	router.GET("/books/:id", books.GetBook)
	router.GET("/books/:id/cover", covers.GetBookCover)
	router.GET("/requests", books.MyRequests)
	router.POST("/requests/:id/cancel", books.CancelRequest)
	router.GET("/borrowed", loans.Borrowed)
	router.GET("/borrowed/history", loans.History)

	router.GET("/rooms", rooms.ListRooms)
	router.GET("/rooms/:id/availability", rooms.Availability)
	router.GET("/bookings", rooms.MyBookings)
	router.POST("/bookings/:id/cancel", rooms.CancelBooking)

	router.GET("/digital-resources", resources.ListResources)
	router.GET("/digital-resources/:id", resources.GetResource)
	router.GET("/digital-resources/:id/cover", covers.GetResourceCover)
	router.GET("/digital-resources/:id/download", resources.Download)

	// Students only
	student := router.Group("", auth.RequireRole(entities.UserRoleStudent))
	student.POST("/books/:id/request", books.RequestBook)
	student.POST("/rooms/:id/book", rooms.BookRoom)

	// Staff only, outside /staff to keep resource paths together
	catalogStaff := router.Group("", auth.RequireRole(entities.UserRoleStaff))
	catalogStaff.POST("/books", books.AddBook)
	catalogStaff.POST("/books/:id/cover", books.UploadCover)
	catalogStaff.POST("/rooms", rooms.CreateRoom)
	catalogStaff.POST("/digital-resources", resources.Upload)
	catalogStaff.POST("/digital-resources/:id/file", resources.ReplaceFile)
	catalogStaff.GET("/reports/user-borrow-history", reports.UserBorrowHistory)

	staff := router.Group("/staff", auth.RequireRole(entities.UserRoleStaff))
	{
		staff.GET("/requests", loans.PendingRequests)
		staff.POST("/requests/accept", loans.BulkAccept)
		staff.POST("/requests/:id/accept", loans.AcceptRequest)
		staff.POST("/requests/:id/reject", loans.RejectRequest)

		staff.GET("/loans", loans.AcceptedLoans)
		staff.POST("/loans/return", loans.BulkReturn)
		staff.POST("/loans/:id/return", loans.ReturnLoan)

		staff.GET("/bookings", rooms.ListBookings)
		staff.POST("/bookings/approve", rooms.BulkApprove)
		staff.POST("/bookings/reject", rooms.BulkReject)
		staff.POST("/bookings/:id/approve", rooms.ApproveBooking)
		staff.POST("/bookings/:id/reject", rooms.RejectBooking)

		staff.GET("/settings/lending", settings.GetLendingSettings)
		staff.POST("/settings/lending", settings.UpdateLendingSettings)
		staff.DELETE("/settings/lending", settings.ResetLendingSettings)

		staff.GET("/tasks", tasks.ListTaskTypes)
		staff.POST("/tasks/:type", tasks.RunTask)
		staff.GET("/tasks/status/:id", tasks.GetTaskStatus)

		if auditLog != nil {
			audit := NewAuditController(auditLog)
			staff.GET("/audit", audit.GetAuditEvents)
		}
	}

	return router
}

// exposeCSRFToken hands the masked token to script clients, which echo it in
// the X-CSRF-Token header on unsafe requests.
func exposeCSRFToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := auth.GetCSRFToken(c); token != "" {
			c.Header(auth.CSRFTokenHeader, token)
		}
		c.Next()
	}
}
