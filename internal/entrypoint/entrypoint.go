package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/audit"
	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/booking"
	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/covers"
	"github.com/mrlokans/campuslib/internal/database"
	auditRepo "github.com/mrlokans/campuslib/internal/database/audit"
	booksRepo "github.com/mrlokans/campuslib/internal/database/books"
	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	roomsRepo "github.com/mrlokans/campuslib/internal/database/rooms"
	settingsRepo "github.com/mrlokans/campuslib/internal/database/settings"
	"github.com/mrlokans/campuslib/internal/database/users"
	http_controllers "github.com/mrlokans/campuslib/internal/http"
	"github.com/mrlokans/campuslib/internal/lending"
	"github.com/mrlokans/campuslib/internal/reports"
	"github.com/mrlokans/campuslib/internal/resources"
	"github.com/mrlokans/campuslib/internal/scheduler"
	"github.com/mrlokans/campuslib/internal/settingsstore"
	"github.com/mrlokans/campuslib/internal/storage/providers/local"
	"github.com/mrlokans/campuslib/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Services is the application core shared by the server and the CLI commands.
type Services struct {
	DB        *database.Database
	Audit     *audit.Service
	Settings  *settingsstore.SettingsStore
	Lending   *lending.Service
	Bookings  *booking.Service
	Resources *resources.Service
	Reports   *reports.Service
	Auth      *auth.Service
	Files     *local.Client
}

// NewServices opens the database and builds every service on top of it.
// Callers must Close the result.
func NewServices(cfg *config.Config) (*Services, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	files, err := local.NewClient(cfg.Media.Dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize media store: %w", err)
	}
	coverStore := covers.NewProcessor(files)

	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	settings := settingsstore.New(settingsRepo.NewRepository(db.DB), cfg.Lending)

	books := booksRepo.NewRepository(db.DB)
	loans := lendingRepo.NewRepository(db.DB)
	lendingService := lending.NewService(loans, books, settings, auditService)

	return &Services{
		DB:        db,
		Audit:     auditService,
		Settings:  settings,
		Lending:   lendingService,
		Bookings:  booking.NewService(roomsRepo.NewRepository(db.DB), auditService),
		Resources: resources.NewService(resourcesRepo.NewRepository(db.DB), files, coverStore, auditService),
		Reports:   reports.NewService(users.NewRepository(db.DB), books, loans, lendingService, coverStore, auditService),
		Auth:      auth.NewService(db.DB, cfg.Auth),
		Files:     files,
	}, nil
}

// Close flushes pending audit writes and closes the database.
func (s *Services) Close() {
	s.Audit.Wait()
	if err := s.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 sends SIGINT; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Workers may still be running maintenance; stop them after the last request
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting campuslib v%s", version)

	svc, err := NewServices(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer svc.Close()

	if cfg.Global.DemoMode {
		log.Printf("Demo mode enabled: write requests other than login and logout are rejected")
	}
	if ok, _ := svc.Auth.HasStaff(context.Background()); !ok {
		log.Printf("No staff accounts found. Create one with: campuslib create-staff")
	}

	// Task queue and its maintenance queues
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.Maintenance
	if cfg.Tasks.Enabled && cfg.Database.Driver != config.DatabaseDriverPostgres {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRefreshFinesQueue(svc.Lending, svc.Audit),
			tasks.NewExpireBookingsQueue(svc.Bookings, svc.Audit),
			tasks.NewCleanupAuditEventsQueue(svc.Audit, svc.Audit),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Maintenance.Enabled {
			maintenance = scheduler.NewMaintenance(cfg.Maintenance.Schedule, cfg.Audit.RetentionDays, taskClient, svc.Settings)
			if err := maintenance.Start(taskCtx); err != nil {
				log.Printf("WARNING: maintenance scheduler disabled: %v", err)
				maintenance = nil
			}
		}
	} else if cfg.Tasks.Enabled {
		log.Printf("Task queue needs a sqlite database; maintenance tasks run only from the staff tasks page")
	}

	sqlDB, err := svc.DB.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret, err := auth.CSRFKey(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to derive CSRF key: %v", err)
	}
	if cfg.Auth.SessionSecret == "" {
		log.Printf("Generated a random CSRF key (set AUTH_SESSION_SECRET to persist)")
	}

	authController := auth.NewAuthController(svc.Auth, sessionManager, svc.Audit, cfg.Auth)

	routerCfg := http_controllers.RouterConfig{
		Database:       svc.DB,
		Catalog:        svc.Reports,
		Lending:        svc.Lending,
		Fines:          svc.Lending,
		Bookings:       svc.Bookings,
		Expirer:        svc.Bookings,
		Resources:      svc.Resources,
		Settings:       svc.Settings,
		Audit:          svc.Audit,
		AuthService:    svc.Auth,
		AuthController: authController,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Files:          svc.Files,
		MediaDir:       cfg.Media.Dir,
		MaxUploadSize:  cfg.Media.MaxUploadSize,
		Version:        version,
		DemoMode:       cfg.Global.DemoMode,
	}
	// A nil *tasks.Client must not end up inside the interface
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		authController.Stop()
	}

	Serve(router, cfg, onShutdown)
}
