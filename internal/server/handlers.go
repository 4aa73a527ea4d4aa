package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/hiring"
	"github.com/jonathan/hr-portal/internal/types"
	"go.uber.org/zap"
)

// Tables written by the edge handlers.
const (
	profilesTable      = "profiles"
	employeesTable     = "employees"
	notificationsTable = "notifications"
)

// decodeRequest reads and validates a JSON body into dst. An empty body is
// treated as {} so that the missing field is named.
func (s *Server) decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Message: "Invalid request body"}
	}
	if n, ok := dst.(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if err := s.validate.Struct(dst); err != nil {
		return types.FirstFieldError(err)
	}
	return nil
}

// handleAdminResetPassword sets a new password for the user with the given email.
func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	var req types.AdminResetPasswordRequest
	if err := s.decodeRequest(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.checkPassword(req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := s.admin.FindUserByEmail(ctx, req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user == nil {
		s.fail(w, r, &ErrNotFound{Resource: "User"})
		return
	}

	if _, err := s.admin.UpdateUser(ctx, user.ID, backend.UserAttributes{Password: req.NewPassword}); err != nil {
		s.fail(w, r, fmt.Errorf("failed to update password: %w", err))
		return
	}

	s.logger.Info("password reset by admin", zap.String("user_id", user.ID))
	s.jsonResponse(w, http.StatusOK, types.Response{
		Success: true,
		Message: "Password reset successfully",
		UserID:  user.ID,
	})
}

// handleCreateEmployeeAuth creates the auth account for an employee, or
// resets its password when the account already exists, then syncs the profile.
func (s *Server) handleCreateEmployeeAuth(w http.ResponseWriter, r *http.Request) {
	var req types.CreateEmployeeAuthRequest
	if err := s.decodeRequest(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.checkPassword(req.Password); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	email := strings.TrimSpace(req.Email)

	user, err := s.admin.FindUserByEmail(ctx, email)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	created := user == nil
	message := "Password updated successfully"
	if created {
		metadata := map[string]any{}
		if req.FirstName != "" {
			metadata["first_name"] = req.FirstName
		}
		if req.LastName != "" {
			metadata["last_name"] = req.LastName
		}
		user, err = s.admin.CreateUser(ctx, backend.UserAttributes{
			Email:        email,
			Password:     req.Password,
			EmailConfirm: true,
			UserMetadata: metadata,
		})
		if err != nil {
			s.fail(w, r, fmt.Errorf("failed to create account: %w", err))
			return
		}
		message = "Account created successfully"
	} else {
		if _, err := s.admin.UpdateUser(ctx, user.ID, backend.UserAttributes{Password: req.Password}); err != nil {
			s.fail(w, r, fmt.Errorf("failed to update password: %w", err))
			return
		}
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role, err = s.defaultRole(r, user.ID, created)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}
	profile := types.Profile{
		ID:        user.ID,
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
	}
	if _, err := s.admin.Upsert(ctx, profilesTable, profile, "id"); err != nil {
		s.fail(w, r, fmt.Errorf("failed to save profile: %w", err))
		return
	}

	if employeeID := req.EmployeeID.String(); employeeID != "" {
		rows, err := s.admin.Patch(ctx, employeesTable,
			url.Values{"id": {backend.Eq(employeeID)}},
			map[string]string{"user_id": user.ID})
		if err != nil {
			s.fail(w, r, fmt.Errorf("failed to link employee: %w", err))
			return
		}
		if len(rows) == 0 {
			s.fail(w, r, &ErrNotFound{Resource: "Employee"})
			return
		}
	}

	s.logger.Info("employee account synced",
		zap.String("user_id", user.ID),
		zap.Bool("created", created))
	s.jsonResponse(w, http.StatusOK, types.Response{
		Success: true,
		Message: message,
		UserID:  user.ID,
		Created: &created,
	})
}

// checkPassword applies the local password policy when one is configured.
// Without one the backend's own rules decide.
func (s *Server) checkPassword(pw string) error {
	if s.passwords == nil {
		return nil
	}
	if err := s.passwords.CheckPolicy(pw); err != nil {
		return &ErrValidation{Message: err.Error()}
	}
	return nil
}

// defaultRole picks the profile role when the request names none. New
// accounts become employees; an existing profile keeps its role, which an
// empty result leaves untouched in the upsert.
func (s *Server) defaultRole(r *http.Request, userID string, created bool) (string, error) {
	if created {
		return types.RoleEmployee, nil
	}
	profiles, err := backend.Fetch[types.Profile](r.Context(), s.admin, profilesTable, url.Values{
		"select": {"id,role"},
		"id":     {backend.Eq(userID)},
		"limit":  {"1"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if len(profiles) == 0 || strings.TrimSpace(profiles[0].Role) == "" {
		return types.RoleEmployee, nil
	}
	return "", nil
}

// handleHireCount reports hires for one job.
func (s *Server) handleHireCount(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.PathValue("job_id"))
	if jobID == "" {
		s.fail(w, r, &ErrValidation{Field: "job_id", Message: "is required"})
		return
	}
	report, err := hiring.Load(r.Context(), hiring.ClientFetcher{Client: s.admin}, jobID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleRequestPasswordReset notifies every admin and HR user that an
// employee asked for a password reset.
func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req types.RequestPasswordResetRequest
	if err := s.decodeRequest(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	email := strings.TrimSpace(req.Email)

	user, err := s.admin.FindUserByEmail(ctx, email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user == nil {
		s.fail(w, r, &ErrNotFound{Resource: "User"})
		return
	}

	profiles, err := backend.Fetch[types.Profile](ctx, s.admin, profilesTable, url.Values{
		"select": {"id,role"},
		"limit":  {"10000"},
	})
	if err != nil {
		s.fail(w, r, fmt.Errorf("failed to load recipients: %w", err))
		return
	}

	notifications := make([]types.Notification, 0)
	for i := range profiles {
		p := &profiles[i]
		if !p.HasRole(types.RoleAdmin) && !p.HasRole(types.RoleHR) {
			continue
		}
		notifications = append(notifications, types.Notification{
			UserID:  p.ID,
			Title:   "Password reset requested",
			Message: fmt.Sprintf("%s has requested a password reset.", email),
			Type:    types.NotificationPasswordReset,
			Read:    false,
		})
	}

	if len(notifications) > 0 {
		if _, err := s.admin.Insert(ctx, notificationsTable, notifications); err != nil {
			s.fail(w, r, fmt.Errorf("failed to notify administrators: %w", err))
			return
		}
	}

	notified := len(notifications)
	s.logger.Info("password reset requested",
		zap.String("user_id", user.ID),
		zap.Int("notified", notified))
	s.jsonResponse(w, http.StatusOK, types.Response{
		Success:  true,
		Message:  "Password reset request submitted",
		Notified: &notified,
	})
}
