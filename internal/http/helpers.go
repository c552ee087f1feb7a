package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/libraryerr"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`     // machine-readable error code
	Redirect string `json:"redirect,omitempty"` // page the client should show next
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// kindStatus maps error kinds to HTTP status codes and machine-readable codes.
var kindStatus = []struct {
	kind   error
	status int
	code   string
}{
	{libraryerr.ErrNotFound, http.StatusNotFound, "not_found"},
	{libraryerr.ErrForbidden, http.StatusForbidden, "forbidden"},
	{libraryerr.ErrConflict, http.StatusConflict, "conflict"},
	{libraryerr.ErrUnavailable, http.StatusConflict, "unavailable"},
	{libraryerr.ErrInvalidState, http.StatusUnprocessableEntity, "invalid_state"},
	{libraryerr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
}

// respondLibraryError translates a service error into a response. Errors with
// a known kind carry their message and the page to return to; everything else
// is logged and answered with 500.
func respondLibraryError(c *gin.Context, err error, redirect, context string) {
	for _, ks := range kindStatus {
		if !errors.Is(err, ks.kind) {
			continue
		}
		if ks.kind == libraryerr.ErrUnauthenticated {
			redirect = "/login"
		}
		if redirect != "" && isHTMXRequest(c) {
			c.Header("HX-Redirect", redirect)
		}
		c.JSON(ks.status, ErrorResponse{
			Error:    errorMessage(err, ks.kind),
			Code:     ks.code,
			Redirect: redirect,
		})
		return
	}
	respondInternalError(c, err, context)
}

// errorMessage strips the kind prefix so "conflict: room is already booked"
// reads as "room is already booked".
func errorMessage(err, kind error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, kind.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// respondDone acknowledges a state change and names the page to show next.
func respondDone(c *gin.Context, message string, data any, redirect string) {
	if redirect != "" && isHTMXRequest(c) {
		c.Header("HX-Redirect", redirect)
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data, Redirect: redirect})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the caller. Routes behind the auth middleware always
// have one; a missing user means the route was mounted without it.
func currentUser(c *gin.Context) (*auth.AuthUser, bool) {
	user := auth.GetAuthUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:    "authentication required",
			Redirect: "/login",
		})
		return nil, false
	}
	return user, true
}

// --- HTMX Support ---

// isHTMXRequest returns true if the request is an HTMX request.
func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
