// Package dbtest opens throwaway databases and inserts fixtures for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/entities"
)

var seq atomic.Int64

// New opens a migrated sqlite database inside t.TempDir and closes it on cleanup.
func New(t *testing.T) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   dbPath,
	}, database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func next() int64 {
	return seq.Add(1)
}

// User inserts an account with the given role. Students get a profile row.
func User(t *testing.T, db *database.Database, username string, role entities.UserRole) *entities.User {
	t.Helper()

	user := &entities.User{
		Username:     username,
		Email:        username + "@campus.test",
		FirstName:    username,
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	require.NoError(t, db.DB.Create(user).Error)

	if role == entities.UserRoleStudent {
		student := &entities.Student{
			UserID:     user.ID,
			Department: entities.DepartmentCSE,
			RollNumber: fmt.Sprintf("R%04d", next()),
			College:    "Campus College",
		}
		require.NoError(t, db.DB.Create(student).Error)
		user.Student = student
	}
	return user
}

// Book inserts a catalog entry with the given number of copies.
func Book(t *testing.T, db *database.Database, name string, copies int) *entities.Book {
	t.Helper()

	book := &entities.Book{
		Name:            name,
		Author:          "Author of " + name,
		ExternalID:      fmt.Sprintf("ACC-%05d", next()),
		AvailableCopies: copies,
	}
	require.NoError(t, db.DB.Create(book).Error)
	return book
}

// Room inserts a study room.
func Room(t *testing.T, db *database.Database, code string, capacity int) *entities.StudyRoom {
	t.Helper()

	room := &entities.StudyRoom{
		Code:     code,
		Name:     "Room " + code,
		Capacity: capacity,
	}
	require.NoError(t, db.DB.Create(room).Error)
	return room
}

// Loan inserts a loan accepted at acceptedAt and due dueAfter later.
func Loan(t *testing.T, db *database.Database, user *entities.User, book *entities.Book, acceptedAt time.Time, dueAfter time.Duration) *entities.Loan {
	t.Helper()

	loan := &entities.Loan{
		UserID:     user.ID,
		BookID:     book.ID,
		AcceptedAt: acceptedAt,
		DueAt:      acceptedAt.Add(dueAfter),
	}
	require.NoError(t, db.DB.Create(loan).Error)
	return loan
}

// Resource inserts a digital resource pointing at fileKey.
func Resource(t *testing.T, db *database.Database, name string, kind entities.ResourceType, fileKey string) *entities.DigitalResource {
	t.Helper()

	res := &entities.DigitalResource{
		Name:       name,
		Author:     "Author of " + name,
		Type:       kind,
		FileKey:    fileKey,
		FileName:   name + ".pdf",
		UploadedAt: time.Now(),
	}
	require.NoError(t, db.DB.Create(res).Error)
	return res
}
