package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/database/dbtest"
	"github.com/mrlokans/campuslib/internal/entities"
)

type loanList struct {
	Loans []struct {
		ID       uint  `json:"id"`
		Returned bool  `json:"returned"`
		LiveFine int64 `json:"live_fine"`
		Overdue  bool  `json:"overdue"`
	} `json:"loans"`
	Count     int   `json:"count"`
	TotalFine int64 `json:"total_fine"`
}

type bulkResponse struct {
	Results   []BulkItem `json:"results"`
	Accepted  int        `json:"accepted"`
	Returned  int        `json:"returned"`
	Approved  int        `json:"approved"`
	Rejected  int        `json:"rejected"`
	Failed    int        `json:"failed"`
	Processed int        `json:"processed"`
}

func (s *testServer) request(user *entities.User, book *entities.Book) *entities.BookRequest {
	s.t.Helper()
	req, err := s.lending.SubmitRequest(context.Background(), user.ID, book.ID)
	require.NoError(s.t, err)
	return req
}

func TestLoans_AcceptAndReturn(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.student("alice")
	_, staffToken := s.staff("librarian")
	book := dbtest.Book(t, s.db, "Dune", 1)
	req := s.request(alice, book)

	w := s.do(http.MethodGet, "/staff/requests", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, w)["count"])

	w = s.do(http.MethodPost, "/staff/requests/"+itoa(req.ID)+"/accept", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decodeBody[struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
		Redirect string `json:"redirect"`
	}](t, w)
	assert.Equal(t, "/staff/requests", accepted.Redirect)

	w = s.do(http.MethodGet, "/borrowed?status=current", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	borrowed := decodeBody[loanList](t, w)
	require.Equal(t, 1, borrowed.Count)
	assert.Equal(t, accepted.Data.ID, borrowed.Loans[0].ID)
	assert.Zero(t, borrowed.TotalFine)

	w = s.do(http.MethodPost, "/staff/loans/"+itoa(accepted.Data.ID)+"/return", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/borrowed?status=returned", aliceToken, nil)
	borrowed = decodeBody[loanList](t, w)
	require.Equal(t, 1, borrowed.Count)
	assert.True(t, borrowed.Loans[0].Returned)

	w = s.do(http.MethodGet, "/books/"+itoa(book.ID), aliceToken, nil)
	assert.Equal(t, true, decodeBody[map[string]any](t, w)["available"])
}

func TestLoans_AcceptWithoutCopies(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.student("alice")
	bob, _ := s.student("bob")
	_, staffToken := s.staff("librarian")
	book := dbtest.Book(t, s.db, "Dune", 1)
	first := s.request(alice, book)
	second := s.request(bob, book)

	w := s.do(http.MethodPost, "/staff/requests/"+itoa(first.ID)+"/accept", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/staff/requests/"+itoa(second.ID)+"/accept", staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "unavailable", decodeBody[ErrorResponse](t, w).Code)
}

func TestLoans_RejectRequest(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.student("alice")
	_, staffToken := s.staff("librarian")
	req := s.request(alice, dbtest.Book(t, s.db, "Dune", 1))

	w := s.do(http.MethodPost, "/staff/requests/"+itoa(req.ID)+"/reject", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/requests", aliceToken, nil)
	assert.EqualValues(t, 0, decodeBody[map[string]any](t, w)["count"])

	w = s.do(http.MethodPost, "/staff/requests/"+itoa(req.ID)+"/reject", staffToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoans_BulkAcceptPartialFailure(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.student("alice")
	_, staffToken := s.staff("librarian")
	req := s.request(alice, dbtest.Book(t, s.db, "Dune", 1))

	w := s.do(http.MethodPost, "/staff/requests/accept", staffToken, map[string]any{
		"ids": []uint{req.ID, 9999},
	})

	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	body := decodeBody[bulkResponse](t, w)
	assert.Equal(t, 1, body.Accepted)
	assert.Equal(t, 1, body.Failed)
	assert.Equal(t, 2, body.Processed)
	require.Len(t, body.Results, 2)
	assert.True(t, body.Results[0].OK)
	assert.False(t, body.Results[1].OK)
	assert.NotEmpty(t, body.Results[1].Error)
}

func TestLoans_BulkReturn(t *testing.T) {
	s := newTestServer(t)
	alice := dbtest.User(t, s.db, "alice", entities.UserRoleStudent)
	_, staffToken := s.staff("librarian")
	now := time.Now()
	first := dbtest.Loan(t, s.db, alice, dbtest.Book(t, s.db, "Dune", 0), now, 5*24*time.Hour)
	second := dbtest.Loan(t, s.db, alice, dbtest.Book(t, s.db, "Emma", 0), now, 5*24*time.Hour)

	w := s.do(http.MethodPost, "/staff/loans/return", staffToken, map[string]any{
		"ids": []uint{first.ID, second.ID},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[bulkResponse](t, w)
	assert.Equal(t, 2, body.Returned)
	assert.Zero(t, body.Failed)

	t.Run("empty selection", func(t *testing.T) {
		w := s.do(http.MethodPost, "/staff/loans/return", staffToken, map[string]any{"ids": []uint{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoans_OverdueFines(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.student("alice")
	_, staffToken := s.staff("librarian")

	// Due three full days ago at the default 10 per day
	accepted := time.Now().Add(-8*24*time.Hour - time.Hour)
	dbtest.Loan(t, s.db, alice, dbtest.Book(t, s.db, "Dune", 0), accepted, 5*24*time.Hour)
	dbtest.Loan(t, s.db, alice, dbtest.Book(t, s.db, "Emma", 0), time.Now(), 5*24*time.Hour)

	w := s.do(http.MethodGet, "/borrowed?sort=-fine", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[loanList](t, w)
	require.Equal(t, 2, body.Count)
	assert.EqualValues(t, 30, body.Loans[0].LiveFine)
	assert.True(t, body.Loans[0].Overdue)
	assert.False(t, body.Loans[1].Overdue)
	assert.EqualValues(t, 30, body.TotalFine)

	w = s.do(http.MethodGet, "/staff/loans?status=current", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody[map[string]any](t, w)["count"])

	w = s.do(http.MethodGet, "/profile", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody[struct {
		Profile struct {
			TotalFine int64 `json:"total_fine"`
		} `json:"profile"`
	}](t, w)
	assert.EqualValues(t, 30, profile.Profile.TotalFine)
}

func TestLoans_InvalidFilters(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.student("alice")
	_, staffToken := s.staff("librarian")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/borrowed?status=lost", aliceToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/borrowed?sort=title", aliceToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/staff/loans?status=lost", staffToken, nil).Code)
}

func TestLoans_History(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.student("alice")
	book := dbtest.Book(t, s.db, "Dune", 0)
	loan := dbtest.Loan(t, s.db, alice, book, time.Now().AddDate(0, 0, -10), 5*24*time.Hour)
	_, err := s.lending.ReturnBook(context.Background(), 0, loan.ID)
	require.NoError(t, err)
	open := dbtest.Loan(t, s.db, alice, book, time.Now(), 5*24*time.Hour)

	w := s.do(http.MethodGet, "/borrowed/history", aliceToken, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[loanList](t, w)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, open.ID, body.Loans[0].ID)
	assert.False(t, body.Loans[0].Returned)
	assert.Equal(t, loan.ID, body.Loans[1].ID)
	assert.True(t, body.Loans[1].Returned)
}
