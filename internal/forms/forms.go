// Package forms decodes and validates request payloads with go-playground/validator.
//
// Form structs declare their wire names with `form`/`json` tags and their rules
// with `validate` tags:
//
//	type bookForm struct {
//		Name string `form:"name" json:"name" validate:"required,max=200"`
//	}
//
//	var form bookForm
//	if errs := forms.Bind(c, &form); errs != nil {
//		forms.Respond(c, errs)
//		return
//	}
package forms

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is returned when any field fails validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks v against its validate tags. It returns nil when v is valid.
func Validate(v any) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{{Field: "form", Message: err.Error()}}
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Bind decodes the request (JSON, form or multipart by Content-Type) into v
// and validates it.
func Bind(c *gin.Context, v any) FieldErrors {
	if err := c.ShouldBind(v); err != nil {
		return FieldErrors{{Field: "form", Message: "malformed request: " + err.Error()}}
	}
	return Validate(v)
}

// Respond writes the 400 response for invalid input.
func Respond(c *gin.Context, errs FieldErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": errs,
	})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "eqfield":
		return "Passwords do not match."
	case "oneof":
		return "Select a valid choice."
	case "datetime":
		return "Enter a valid date."
	}
	return fmt.Sprintf("Failed the %q check.", fe.Tag())
}
