package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/database/dbtest"
	"github.com/mrlokans/campuslib/internal/entities"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(config.Database{Driver: "oracle"}, database.Options{})
	assert.ErrorIs(t, err, database.ErrUnknownDriver)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Contains(t, database.SQLiteDSN("./lib.db"), "./lib.db?_journal=WAL")
	assert.Contains(t, database.SQLiteDSN("file:lib.db?cache=shared"), "cache=shared&_journal=WAL")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := dbtest.New(t)

	for _, table := range []string{
		"users", "students", "books", "book_requests", "loans", "study_rooms",
		"room_bookings", "digital_resources", "digital_engagement_records", "audit_events", "settings",
	} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
}

func TestSeedRooms_Idempotent(t *testing.T) {
	db := dbtest.New(t)

	created, err := db.SeedRooms(database.DefaultRooms)
	require.NoError(t, err)
	assert.Equal(t, len(database.DefaultRooms), created)

	created, err = db.SeedRooms(database.DefaultRooms)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSchema_Constraints(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.User(t, db, "s1", entities.UserRoleStudent)

	t.Run("available copies cannot go negative", func(t *testing.T) {
		book := dbtest.Book(t, db, "Logic", 0)
		err := db.DB.Model(&entities.Book{}).Where("id = ?", book.ID).
			Update("available_copies", gorm.Expr("available_copies - 1")).Error
		assert.Error(t, err)
	})

	t.Run("room capacity must be positive", func(t *testing.T) {
		err := db.DB.Create(&entities.StudyRoom{Code: "BAD", Name: "Bad", Capacity: 0}).Error
		assert.Error(t, err)
	})

	t.Run("one active booking per room and date", func(t *testing.T) {
		room := dbtest.Room(t, db, "R1", 3)
		first := &entities.RoomBooking{UserID: student.ID, RoomID: room.ID, BookingDate: "2031-01-01", Status: entities.BookingStatusApproved, RequestedAt: time.Now()}
		require.NoError(t, db.DB.Omit("User", "Room").Create(first).Error)

		second := &entities.RoomBooking{UserID: student.ID, RoomID: room.ID, BookingDate: "2031-01-01", Status: entities.BookingStatusPending, RequestedAt: time.Now()}
		assert.ErrorIs(t, db.DB.Omit("User", "Room").Create(second).Error, gorm.ErrDuplicatedKey)

		rejected := &entities.RoomBooking{UserID: student.ID, RoomID: room.ID, BookingDate: "2031-01-01", Status: entities.BookingStatusRejected, RequestedAt: time.Now()}
		assert.NoError(t, db.DB.Omit("User", "Room").Create(rejected).Error, "inactive bookings do not hold the slot")
	})

	t.Run("student profile requires an account", func(t *testing.T) {
		err := db.DB.Create(&entities.Student{UserID: 424242}).Error
		assert.Error(t, err)
	})
}
