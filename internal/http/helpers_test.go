package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/libraryerr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, uint(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	for _, value := range []string{"abc", "-1", "0", ""} {
		t.Run(value, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: value}}

			id, ok := parseIDParam(c, "id")

			assert.False(t, ok)
			assert.Equal(t, uint(0), id)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid id")
		})
	}
}

func TestRespondLibraryError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantTarget string
	}{
		{"not found", libraryerr.NotFound("book", 9), http.StatusNotFound, "not_found", "book 9", "/books"},
		{"forbidden", fmt.Errorf("%w: not your booking", libraryerr.ErrForbidden), http.StatusForbidden, "forbidden", "not your booking", "/books"},
		{"duplicate request", libraryerr.ErrDuplicateRequest, http.StatusConflict, "conflict", "you have already requested this book", "/books"},
		{"no copies", libraryerr.ErrNoCopies, http.StatusConflict, "unavailable", "no copies of this book are available", "/books"},
		{"in the past", libraryerr.ErrInThePast, http.StatusUnprocessableEntity, "invalid_state", "booking date is in the past", "/books"},
		{"unauthenticated goes to login", libraryerr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "authentication required", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			respondLibraryError(c, tt.err, "/books", "test")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Equal(t, tt.wantTarget, body.Redirect)
		})
	}
}

func TestRespondLibraryError_UnknownErrorIsHidden(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondLibraryError(c, errors.New("disk on fire"), "/books", "test")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestRespondLibraryError_HTMXRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("HX-Request", "true")

	respondLibraryError(c, libraryerr.ErrRoomTaken, "/rooms", "test")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/rooms", w.Header().Get("HX-Redirect"))
}

func TestIsHTMXRequest(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected bool
	}{
		{"htmx request", "true", true},
		{"regular request", "", false},
		{"other value", "false", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("HX-Request", tt.header)
			}

			assert.Equal(t, tt.expected, isHTMXRequest(c))
		})
	}
}
