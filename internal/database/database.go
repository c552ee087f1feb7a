package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/entities"
)

// sqlitePragmas turn on WAL, foreign keys and immediate write transactions so
// concurrent writers queue on the busy timeout instead of failing mid-transaction.
const sqlitePragmas = "_journal=WAL&_timeout=5000&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

var ErrUnknownDriver = errors.New("unknown database driver")

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// Options tweak how the connection is opened.
type Options struct {
	LogLevel logger.LogLevel
}

func NewDatabase(cfg config.Database) (*Database, error) {
	return Open(cfg, Options{LogLevel: logger.Info})
}

func Open(cfg config.Database, opts Options) (*Database, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Info
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DatabaseDriverSQLite
	}

	var dialector gorm.Dialector
	var target string
	switch driver {
	case config.DatabaseDriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg.Path))
		target = cfg.Path
	case config.DatabaseDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
		target = "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully at %s", target)

	return &Database{DB: db, Driver: driver}, nil
}

// Migrate creates or updates every table the application uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.User{},
		&entities.Student{},
		&entities.Book{},
		&entities.BookRequest{},
		&entities.Loan{},
		&entities.StudyRoom{},
		&entities.RoomBooking{},
		&entities.DigitalResource{},
		&entities.EngagementRecord{},
		&entities.AuditEvent{},
		&entities.Setting{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SQLiteDSN appends the connection pragmas to a sqlite path.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedRooms creates the given study rooms unless a room with the same code exists.
// Returns the number of rooms created.
func (d *Database) SeedRooms(rooms []entities.StudyRoom) (int, error) {
	created := 0
	for _, room := range rooms {
		var existing entities.StudyRoom
		result := d.DB.Where("code = ?", room.Code).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&room).Error; err != nil {
				return created, fmt.Errorf("failed to create room %s: %w", room.Code, err)
			}
			log.Printf("Created study room: %s (%s)", room.Name, room.Code)
			created++
		} else if result.Error != nil {
			return created, result.Error
		}
	}
	return created, nil
}

// DefaultRooms is the starter set used by the seed-rooms command.
var DefaultRooms = []entities.StudyRoom{
	{Code: "SR-101", Name: "Quiet Room", Capacity: 4, Description: "Silent individual study"},
	{Code: "SR-102", Name: "Group Room A", Capacity: 8, Description: "Whiteboard and projector"},
	{Code: "SR-103", Name: "Group Room B", Capacity: 8, Description: "Whiteboard"},
	{Code: "SR-201", Name: "Seminar Room", Capacity: 20, Description: "Presentation screen and conference phone"},
}
