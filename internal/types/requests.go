package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AdminResetPasswordRequest is the body of the admin password reset handler.
type AdminResetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// CreateEmployeeAuthRequest is the body of the employee account handler.
type CreateEmployeeAuthRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Role       string `json:"role,omitempty"`
	EmployeeID FlexID `json:"employee_id,omitempty"`
}

// RequestPasswordResetRequest is the body of the employee reset request handler.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

// Response is the envelope every edge handler answers with.
type Response struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Created  *bool  `json:"created,omitempty"`
	Notified *int   `json:"notified,omitempty"`
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError names the first field that failed validation.
type FieldError struct {
	Field string
	Tag   string
}

func (e *FieldError) Error() string {
	if e.Tag == "required" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s is invalid", e.Field)
}

// FirstFieldError converts validator output into a *FieldError for the first
// failing field. Other errors are returned unchanged.
func FirstFieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &FieldError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}
	}
	return err
}

// Normalize trims the email address.
func (r *AdminResetPasswordRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }

// Normalize trims the email address and optional identifiers.
func (r *CreateEmployeeAuthRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
	r.EmployeeID = FlexID(strings.TrimSpace(r.EmployeeID.String()))
}

// Normalize trims the email address.
func (r *RequestPasswordResetRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }
