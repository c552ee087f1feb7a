package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/database/users"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/forms"
)

// ProfileController handles user profile operations.
type ProfileController struct {
	catalog Catalog
	editor  ProfileEditor
}

// NewProfileController creates a new ProfileController.
func NewProfileController(catalog Catalog, editor ProfileEditor) *ProfileController {
	return &ProfileController{
		catalog: catalog,
		editor:  editor,
	}
}

type profileForm struct {
	FirstName    string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName     string `form:"last_name" json:"last_name" validate:"max=150"`
	Email        string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	Department   string `form:"department" json:"department" validate:"omitempty,oneof=CSE EC EEE BCA OTHER"`
	RollNumber   string `form:"roll_number" json:"roll_number" validate:"max=20"`
	RegisteredID string `form:"registered_id" json:"registered_id" validate:"max=50"`
	College      string `form:"college" json:"college" validate:"max=100"`
	Phone        string `form:"phone" json:"phone" validate:"max=15"`
}

// Profile handles GET /profile: account details, unpaid fines, books in hand
// and open requests.
func (pc *ProfileController) Profile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := pc.catalog.Profile(c.Request.Context(), user.ID)
	if err != nil {
		respondLibraryError(c, err, "/login", "load profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":     summary,
		"departments": entities.Departments,
	})
}

// UpdateProfile handles POST /profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form profileForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	updated, err := pc.editor.UpdateProfile(c.Request.Context(), user.ID, users.ProfileUpdate{
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		Department:   entities.Department(form.Department),
		RollNumber:   form.RollNumber,
		RegisteredID: form.RegisteredID,
		College:      form.College,
		Phone:        form.Phone,
	})
	switch {
	case errors.Is(err, auth.ErrEmailInvalid):
		forms.Respond(c, forms.FieldErrors{{Field: "email", Message: "Enter a valid email address."}})
		return
	case errors.Is(err, auth.ErrInvalidDept):
		forms.Respond(c, forms.FieldErrors{{Field: "department", Message: "Select a valid choice."}})
		return
	case errors.Is(err, auth.ErrUserNotFound):
		respondNotFound(c, "user")
		return
	case err != nil:
		respondInternalError(c, err, "update profile")
		return
	}

	respondDone(c, "Profile updated.", updated, "/profile")
}
