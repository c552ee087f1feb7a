package http

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/database/dbtest"
)

func TestBooks_ListAndSearch(t *testing.T) {
	s := newTestServer(t)
	_, token := s.student("alice")
	dbtest.Book(t, s.db, "Dune", 2)
	dbtest.Book(t, s.db, "Neuromancer", 1)

	w := s.do(http.MethodGet, "/books", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.EqualValues(t, 2, body["count"])

	w = s.do(http.MethodGet, "/books?search=dun", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody[map[string]any](t, w)
	assert.EqualValues(t, 1, body["count"])
}

func TestBooks_GetBook(t *testing.T) {
	s := newTestServer(t)
	_, token := s.student("alice")
	book := dbtest.Book(t, s.db, "Dune", 0)

	t.Run("found", func(t *testing.T) {
		w := s.do(http.MethodGet, "/books/"+itoa(book.ID), token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[map[string]any](t, w)
		assert.Equal(t, false, body["available"])
	})

	t.Run("missing", func(t *testing.T) {
		w := s.do(http.MethodGet, "/books/9999", token, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeBody[ErrorResponse](t, w)
		assert.Equal(t, "not_found", body.Code)
		assert.Equal(t, "/books", body.Redirect)
	})

	t.Run("bad id", func(t *testing.T) {
		w := s.do(http.MethodGet, "/books/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooks_AddBook(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff("librarian")

	form := map[string]any{
		"name":             "The Pragmatic Programmer",
		"author":           "Hunt",
		"external_id":      "ACC-1",
		"available_copies": 3,
	}

	w := s.do(http.MethodPost, "/books", token, form)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody[map[string]any](t, w)
	assert.Contains(t, body["redirect"], "/books/")

	t.Run("duplicate accession number", func(t *testing.T) {
		w := s.do(http.MethodPost, "/books", token, form)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", decodeBody[ErrorResponse](t, w).Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := s.do(http.MethodPost, "/books", token, map[string]any{"author": "Nobody"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "external_id")
		assert.Contains(t, w.Body.String(), "name")
	})
}

func TestBooks_RequestLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, token := s.student("alice")
	book := dbtest.Book(t, s.db, "Dune", 1)
	empty := dbtest.Book(t, s.db, "Out of print", 0)

	w := s.do(http.MethodPost, "/books/"+itoa(book.ID)+"/request", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[SuccessResponse](t, w)
	assert.Equal(t, "/requests", created.Redirect)

	t.Run("second request for the same book", func(t *testing.T) {
		w := s.do(http.MethodPost, "/books/"+itoa(book.ID)+"/request", token, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", decodeBody[ErrorResponse](t, w).Code)
	})

	t.Run("no copies left", func(t *testing.T) {
		w := s.do(http.MethodPost, "/books/"+itoa(empty.ID)+"/request", token, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "unavailable", decodeBody[ErrorResponse](t, w).Code)
	})

	w = s.do(http.MethodGet, "/requests", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[struct {
		Requests []struct {
			ID uint `json:"id"`
		} `json:"requests"`
		Count int `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)

	t.Run("another student cannot cancel it", func(t *testing.T) {
		_, other := s.student("bob")
		w := s.do(http.MethodPost, "/requests/"+itoa(list.Requests[0].ID)+"/cancel", other, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	w = s.do(http.MethodPost, "/requests/"+itoa(list.Requests[0].ID)+"/cancel", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/requests", token, nil)
	assert.EqualValues(t, 0, decodeBody[map[string]any](t, w)["count"])
}

func TestBooks_UploadCover(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff("librarian")
	book := dbtest.Book(t, s.db, "Dune", 1)

	t.Run("not an image", func(t *testing.T) {
		w := s.doMultipart("/books/"+itoa(book.ID)+"/cover", token, nil,
			upload{field: "cover", name: "cover.png", content: []byte("plain text")})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "cover")
	})

	t.Run("missing file", func(t *testing.T) {
		w := s.doMultipart("/books/"+itoa(book.ID)+"/cover", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := s.doMultipart("/books/"+itoa(book.ID)+"/cover", token, nil,
		upload{field: "cover", name: "cover.png", content: pngBytes(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/books/"+itoa(book.ID)+"/cover", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestBooks_CoverMissing(t *testing.T) {
	s := newTestServer(t)
	_, token := s.student("alice")
	book := dbtest.Book(t, s.db, "Dune", 1)

	w := s.do(http.MethodGet, "/books/"+itoa(book.ID)+"/cover", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 60))))
	return buf.Bytes()
}
