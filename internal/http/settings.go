package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/forms"
	"github.com/mrlokans/campuslib/internal/settingsstore"
)

// SettingsController lets staff override the lending policy at runtime.
type SettingsController struct {
	settings LendingSettings
	auditor  SettingsAuditor
}

func NewSettingsController(settings LendingSettings, auditor SettingsAuditor) *SettingsController {
	return &SettingsController{settings: settings, auditor: auditor}
}

type lendingPolicyForm struct {
	LoanDays   int   `form:"loan_days" json:"loan_days" validate:"gte=1,lte=365"`
	FinePerDay int64 `form:"fine_per_day" json:"fine_per_day" validate:"gte=0,lte=100000"`
}

// GetLendingSettings handles GET /staff/settings/lending
func (sc *SettingsController) GetLendingSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"lending":     sc.settings.LendingPolicyInfo(),
		"maintenance": sc.settings.MaintenanceStatus(),
	})
}

// UpdateLendingSettings handles POST /staff/settings/lending. New values apply
// to loans accepted and fines computed from now on.
func (sc *SettingsController) UpdateLendingSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form lendingPolicyForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	err := sc.settings.SetLendingPolicy(settingsstore.LendingPolicy{
		LoanDays:   form.LoanDays,
		FinePerDay: form.FinePerDay,
	})
	switch {
	case errors.Is(err, settingsstore.ErrInvalidLoanDays):
		forms.Respond(c, forms.FieldErrors{{Field: "loan_days", Message: err.Error()}})
		return
	case errors.Is(err, settingsstore.ErrInvalidFinePerDay):
		forms.Respond(c, forms.FieldErrors{{Field: "fine_per_day", Message: err.Error()}})
		return
	case err != nil:
		respondInternalError(c, err, "save lending policy")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogSettings(user.ID, "lending_policy_update",
			fmt.Sprintf("Loan period %d days, fine %d per day", form.LoanDays, form.FinePerDay))
	}
	respondDone(c, "Lending policy saved.", sc.settings.LendingPolicyInfo(), "")
}

// ResetLendingSettings handles DELETE /staff/settings/lending
func (sc *SettingsController) ResetLendingSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := sc.settings.ClearLendingPolicy(); err != nil {
		respondInternalError(c, err, "clear lending policy")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogSettings(user.ID, "lending_policy_reset", "Lending policy reverted to configuration")
	}
	respondDone(c, "Lending policy reset.", sc.settings.LendingPolicyInfo(), "")
}
