package lending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/database/books"
	"github.com/mrlokans/campuslib/internal/database/dbtest"
	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
)

type fixedPolicy struct {
	days int
	fine int64
}

func (p *fixedPolicy) LoanDays() int     { return p.days }
func (p *fixedPolicy) FinePerDay() int64 { return p.fine }

type recordedEvent struct {
	actorID uint
	action  string
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *fakeAuditor) LogLending(actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{actorID: actorID, action: action})
}

func (a *fakeAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.events {
		out = append(out, e.action)
	}
	return out
}

type testEnv struct {
	db      *database.Database
	repo    *lendingRepo.Repository
	svc     *Service
	policy  *fixedPolicy
	auditor *fakeAuditor
	now     time.Time
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:      dbtest.New(t),
		policy:  &fixedPolicy{days: 5, fine: 10},
		auditor: &fakeAuditor{},
		now:     time.Date(2031, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.repo = lendingRepo.NewRepository(env.db.DB)
	env.svc = NewService(env.repo, books.NewRepository(env.db.DB), env.policy, env.auditor).
		WithClock(func() time.Time { return env.now })
	return env
}

func (e *testEnv) copies(t *testing.T, bookID uint) int {
	t.Helper()
	var book entities.Book
	require.NoError(t, e.db.DB.First(&book, bookID).Error)
	return book.AvailableCopies
}

func TestFine(t *testing.T) {
	due := time.Date(2031, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"before due", due.Add(-time.Hour), 0},
		{"exactly due", due, 0},
		{"less than a day late", due.Add(23 * time.Hour), 0},
		{"one day late", due.Add(24 * time.Hour), 10},
		{"three and a half days late", due.Add(84 * time.Hour), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fine(due, tt.now, 10))
		})
	}
}

func TestSubmitRequest(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "asha", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Operating Systems", 2)

	req, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusPending, req.Status)
	assert.Equal(t, env.now, req.RequestedAt)
	assert.Equal(t, 2, env.copies(t, book.ID), "submitting does not take a copy")

	t.Run("duplicate", func(t *testing.T) {
		_, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
		assert.ErrorIs(t, err, libraryerr.ErrDuplicateRequest)
		assert.ErrorIs(t, err, libraryerr.ErrConflict)
	})

	t.Run("no copies", func(t *testing.T) {
		empty := dbtest.Book(t, env.db, "Out of Print", 0)
		_, err := env.svc.SubmitRequest(ctx, student.ID, empty.ID)
		assert.ErrorIs(t, err, libraryerr.ErrUnavailable)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := env.svc.SubmitRequest(ctx, student.ID, 9999)
		assert.ErrorIs(t, err, libraryerr.ErrNotFound)
	})

	assert.Equal(t, []string{"request_submit"}, env.auditor.actions())
}

func TestAcceptRequest(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	student := dbtest.User(t, env.db, "ravi", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Compilers", 2)

	req, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
	require.NoError(t, err)

	loan, err := env.svc.AcceptRequest(ctx, staff.ID, req.ID)
	require.NoError(t, err)

	assert.Equal(t, student.ID, loan.UserID)
	assert.Equal(t, "Compilers", loan.Book.Name)
	assert.True(t, loan.AcceptedAt.Equal(env.now))
	assert.True(t, loan.DueAt.Equal(env.now.AddDate(0, 0, 5)))
	assert.Zero(t, loan.Fine)
	assert.False(t, loan.Returned)
	require.NotNil(t, loan.RequestID)
	assert.Equal(t, req.ID, *loan.RequestID)
	assert.Equal(t, 1, env.copies(t, book.ID))

	_, err = env.repo.GetRequest(ctx, req.ID)
	assert.Error(t, err, "accepted request is removed")

	t.Run("missing request", func(t *testing.T) {
		_, err := env.svc.AcceptRequest(ctx, staff.ID, req.ID)
		assert.ErrorIs(t, err, libraryerr.ErrNotFound)
	})
}

func TestAcceptRequest_LastCopy(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	a := dbtest.User(t, env.db, "a", entities.UserRoleStudent)
	b := dbtest.User(t, env.db, "b", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Algorithms", 1)

	reqA, err := env.svc.SubmitRequest(ctx, a.ID, book.ID)
	require.NoError(t, err)
	reqB, err := env.svc.SubmitRequest(ctx, b.ID, book.ID)
	require.NoError(t, err)

	_, err = env.svc.AcceptRequest(ctx, staff.ID, reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.copies(t, book.ID))

	_, err = env.svc.AcceptRequest(ctx, staff.ID, reqB.ID)
	assert.ErrorIs(t, err, libraryerr.ErrUnavailable)
	assert.Equal(t, 0, env.copies(t, book.ID))

	stillOpen, err := env.repo.HasOpenRequest(ctx, b.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, stillOpen, "failed acceptance leaves the request pending")
}

func TestAcceptRequest_Concurrent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	book := dbtest.Book(t, env.db, "Distributed Systems", 1)

	var requestIDs []uint
	for _, name := range []string{"s1", "s2", "s3", "s4"} {
		student := dbtest.User(t, env.db, name, entities.UserRoleStudent)
		req, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
		require.NoError(t, err)
		requestIDs = append(requestIDs, req.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requestIDs))
	for i, id := range requestIDs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = env.svc.AcceptRequest(ctx, staff.ID, id)
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, libraryerr.ErrUnavailable)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 0, env.copies(t, book.ID))
}

func TestRejectRequest(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	student := dbtest.User(t, env.db, "meera", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Databases", 1)

	req, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.RejectRequest(ctx, staff.ID, req.ID))
	assert.Equal(t, 1, env.copies(t, book.ID))

	err = env.svc.RejectRequest(ctx, staff.ID, req.ID)
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)

	// the student may ask again once rejected
	_, err = env.svc.SubmitRequest(ctx, student.ID, book.ID)
	assert.NoError(t, err)
}

func TestCancelRequest(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := dbtest.User(t, env.db, "owner", entities.UserRoleStudent)
	other := dbtest.User(t, env.db, "other", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Graphics", 1)

	req, err := env.svc.SubmitRequest(ctx, owner.ID, book.ID)
	require.NoError(t, err)

	err = env.svc.CancelRequest(ctx, other.ID, req.ID)
	assert.ErrorIs(t, err, libraryerr.ErrForbidden)

	require.NoError(t, env.svc.CancelRequest(ctx, owner.ID, req.ID))

	err = env.svc.CancelRequest(ctx, owner.ID, req.ID)
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)
}

func TestReturnBook(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	student := dbtest.User(t, env.db, "kiran", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Networks", 1)

	req, err := env.svc.SubmitRequest(ctx, student.ID, book.ID)
	require.NoError(t, err)
	loan, err := env.svc.AcceptRequest(ctx, staff.ID, req.ID)
	require.NoError(t, err)

	// 5 day loan, returned 7 days and 2 hours later: 2 full days late
	env.now = env.now.Add(7*24*time.Hour + 2*time.Hour)

	returned, err := env.svc.ReturnBook(ctx, staff.ID, loan.ID)
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, int64(20), returned.Fine)
	assert.Equal(t, 1, env.copies(t, book.ID))

	t.Run("second return is a no-op", func(t *testing.T) {
		env.now = env.now.Add(10 * 24 * time.Hour)

		again, err := env.svc.ReturnBook(ctx, staff.ID, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(20), again.Fine)
		assert.Equal(t, 1, env.copies(t, book.ID))
	})

	t.Run("fine frozen after return", func(t *testing.T) {
		fine, err := env.svc.CalculateFine(ctx, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(20), fine)
	})

	t.Run("missing loan", func(t *testing.T) {
		_, err := env.svc.ReturnBook(ctx, staff.ID, 4242)
		assert.ErrorIs(t, err, libraryerr.ErrNotFound)
	})

	assert.Equal(t, []string{"request_submit", "request_accept", "loan_return"}, env.auditor.actions())
}

func TestCalculateFine(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "dev", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Signals", 1)

	loan := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -10), 5*24*time.Hour)

	fine, err := env.svc.CalculateFine(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fine)

	stored, err := env.repo.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stored.Fine)

	t.Run("never decreases", func(t *testing.T) {
		env.policy.fine = 1
		fine, err := env.svc.CalculateFine(ctx, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), fine)
	})

	t.Run("not overdue", func(t *testing.T) {
		fresh := dbtest.Loan(t, env.db, student, book, env.now, 5*24*time.Hour)
		fine, err := env.svc.CalculateFine(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Zero(t, fine)
	})
}

func TestRefreshFines(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "neha", entities.UserRoleStudent)
	book := dbtest.Book(t, env.db, "Robotics", 3)

	overdue := dbtest.Loan(t, env.db, student, book, env.now.AddDate(0, 0, -8), 5*24*time.Hour)
	dbtest.Loan(t, env.db, student, book, env.now, 5*24*time.Hour)

	updated, err := env.svc.RefreshFines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, err := env.repo.GetLoan(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), stored.Fine)

	updated, err = env.svc.RefreshFines(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated, "unchanged fines are not rewritten")
}

func TestBulkActions(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	student := dbtest.User(t, env.db, "tara", entities.UserRoleStudent)
	first := dbtest.Book(t, env.db, "Book One", 1)
	second := dbtest.Book(t, env.db, "Book Two", 1)

	r1, err := env.svc.SubmitRequest(ctx, student.ID, first.ID)
	require.NoError(t, err)
	r2, err := env.svc.SubmitRequest(ctx, student.ID, second.ID)
	require.NoError(t, err)

	results := env.svc.BulkAccept(ctx, staff.ID, []uint{r1.ID, 777, r2.ID})
	require.Len(t, results, 3)
	assert.Equal(t, 1, Failed(results))
	assert.ErrorIs(t, results[1].Err, libraryerr.ErrNotFound)

	returned := env.svc.BulkReturn(ctx, staff.ID, []uint{results[0].Loan.ID, results[2].Loan.ID})
	assert.Zero(t, Failed(returned))
	assert.Equal(t, 1, env.copies(t, first.ID))
	assert.Equal(t, 1, env.copies(t, second.ID))
}
