package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/covers"
	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/database/books"
	"github.com/mrlokans/campuslib/internal/database/dbtest"
	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	"github.com/mrlokans/campuslib/internal/database/users"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/lending"
	"github.com/mrlokans/campuslib/internal/libraryerr"
	"github.com/mrlokans/campuslib/internal/storage/providers/local"
)

type fixedPolicy struct{}

func (fixedPolicy) LoanDays() int     { return 5 }
func (fixedPolicy) FinePerDay() int64 { return 10 }

type testEnv struct {
	db  *database.Database
	svc *Service
	now time.Time
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:  dbtest.New(t),
		now: time.Date(2031, 5, 20, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	loans := lendingRepo.NewRepository(env.db.DB)
	bookRepo := books.NewRepository(env.db.DB)
	fines := lending.NewService(loans, bookRepo, fixedPolicy{}, nil).WithClock(clock)

	files, err := local.NewClient(t.TempDir())
	require.NoError(t, err)

	env.svc = NewService(users.NewRepository(env.db.DB), bookRepo, loans, fines, covers.NewProcessor(files), nil).
		WithClock(clock)
	return env
}

func markReturned(t *testing.T, db *database.Database, loan *entities.Loan, at time.Time, fine int64) {
	t.Helper()
	require.NoError(t, db.DB.Model(loan).Updates(map[string]any{"returned": true, "returned_at": at, "fine": fine}).Error)
}

func TestBooks(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	book := &entities.Book{Name: " Discrete Maths ", Author: "Rosen", ExternalID: "ACC-1", AvailableCopies: 3}
	require.NoError(t, env.svc.AddBook(ctx, 1, book))
	assert.Equal(t, "Discrete Maths", book.Name)

	err := env.svc.AddBook(ctx, 1, &entities.Book{Name: "Copy", ExternalID: "ACC-1"})
	assert.ErrorIs(t, err, ErrAccessionTaken)

	err = env.svc.AddBook(ctx, 1, &entities.Book{Name: "Broken", ExternalID: "ACC-2", AvailableCopies: -1})
	assert.ErrorIs(t, err, ErrInvalidBook)

	found, err := env.svc.ListBooks(ctx, "rosen")
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = env.svc.GetBook(ctx, 999)
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)
}

func TestBorrowedAndHistory(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "lata", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Calculus", 5)

	// due 3 days ago, unreturned: live fine 30
	overdue := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -8), 5*24*time.Hour)
	// due in 4 days
	current := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -1), 5*24*time.Hour)
	// returned late with a frozen fine
	returned := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -30), 5*24*time.Hour)
	markReturned(t, env.db, returned, env.now.AddDate(0, 0, -20), 50)

	all, err := env.svc.Borrowed(ctx, student.ID, lendingRepo.LoanStatusAll, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, current.ID, all[0].ID, "newest first by default")

	byFine, err := env.svc.Borrowed(ctx, student.ID, lendingRepo.LoanStatusAll, lendingRepo.SortFineDesc)
	require.NoError(t, err)
	assert.Equal(t, returned.ID, byFine[0].ID)
	assert.Equal(t, int64(50), byFine[0].LiveFine)
	assert.Equal(t, overdue.ID, byFine[1].ID)
	assert.Equal(t, int64(30), byFine[1].LiveFine)
	assert.True(t, byFine[1].Overdue)

	inHand, err := env.svc.Borrowed(ctx, student.ID, lendingRepo.LoanStatusCurrent, lendingRepo.SortReturnDate)
	require.NoError(t, err)
	require.Len(t, inHand, 2)
	assert.Equal(t, overdue.ID, inHand[0].ID, "earliest due date first")

	history, err := env.svc.History(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, history, 3, "history keeps unreturned loans")
	assert.Equal(t, []uint{current.ID, overdue.ID, returned.ID},
		[]uint{history[0].ID, history[1].ID, history[2].ID}, "most recently accepted first")
	assert.Equal(t, int64(30), history[1].LiveFine)
	assert.Equal(t, int64(50), history[2].LiveFine)
}

func TestProfile(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "mohan", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Physics", 5)
	other := dbtest.Book(t, env.db, "Chemistry", 5)

	dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -7), 5*24*time.Hour)
	paid := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -40), 5*24*time.Hour)
	markReturned(t, env.db, paid, env.now.AddDate(0, 0, -30), 50)
	require.NoError(t, env.db.DB.Create(&entities.BookRequest{UserID: student.ID, BookID: other.ID, Status: entities.RequestStatusPending, RequestedAt: env.now}).Error)

	summary, err := env.svc.Profile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "mohan", summary.User.Username)
	require.NotNil(t, summary.User.Student)
	assert.Equal(t, entities.DepartmentCSE, summary.User.Student.Department)
	assert.Equal(t, int64(20), summary.TotalFine, "returned fines are not outstanding")
	assert.Len(t, summary.CurrentLoans, 1)
	assert.Equal(t, int64(1), summary.OpenRequests)

	_, err = env.svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)
}

func TestUserBorrowHistory(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	anil := dbtest.User(t, env.db, "anil", entities.UserRoleStudent)
	bina := dbtest.User(t, env.db, "bina", entities.UserRoleStudent)
	dbtest.User(t, env.db, "chetan", entities.UserRoleStudent) // never borrowed
	book := dbtest.Book(t, env.db, "Biology", 10)

	dbtest.Loan(t, env.db, anil, book, env.now.AddDate(0, 0, -1), 5*24*time.Hour)
	dbtest.Loan(t, env.db, bina, book, env.now.AddDate(0, 0, -9), 5*24*time.Hour)
	dbtest.Loan(t, env.db, bina, book, env.now.AddDate(0, 0, -7), 5*24*time.Hour)
	late := dbtest.Loan(t, env.db, bina, book, env.now.AddDate(0, 0, -20), 5*24*time.Hour)
	markReturned(t, env.db, late, env.now.AddDate(0, 0, -10), 50)

	summaries, err := env.svc.UserBorrowHistory(ctx, "", SortByUsername)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "anil", summaries[0].User.Username)

	b := summaries[1]
	assert.Equal(t, 3, b.TotalBooks)
	assert.Equal(t, 2, b.CurrentBooks)
	assert.Equal(t, 2, b.OverdueBooks)
	assert.Equal(t, int64(40+20+50), b.TotalFine)

	byOverdue, err := env.svc.UserBorrowHistory(ctx, "", SortByOverdue)
	require.NoError(t, err)
	assert.Equal(t, "bina", byOverdue[0].User.Username)

	byTotal, err := env.svc.UserBorrowHistory(ctx, "", SortByTotalBooks)
	require.NoError(t, err)
	assert.Equal(t, "bina", byTotal[0].User.Username)

	searched, err := env.svc.UserBorrowHistory(ctx, "ANI", "")
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, anil.ID, searched[0].User.ID)

	none, err := env.svc.UserBorrowHistory(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
