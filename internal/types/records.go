// Package types provides type definitions for the records and payloads exchanged with the HR backend.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatusHired is the application status counted as a hire.
const StatusHired = "hired"

// FlexID is an identifier column that older rows store as a string and newer
// rows as a number. Both decode to the same textual form.
type FlexID string

// UnmarshalJSON accepts a JSON string or number.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty identifier")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

// String returns the identifier text.
func (id FlexID) String() string { return string(id) }

// Payload is the free-form legacy column of an application. A string holding
// a JSON object is decoded once more; anything that does not yield an object
// decodes to nil.
type Payload map[string]any

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		v = nil
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = nil
		}
	}
	m, _ := v.(map[string]any)
	*p = m
	return nil
}

// timestampLayouts covers timestamptz, timestamp without time zone and date columns.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Timestamp is a time column. Values without a zone are read as UTC and
// null or empty values leave it zero.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*t = Timestamp{}
		return nil
	}
	text := strings.TrimSpace(*s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", text)
}

// Application is a row of the applications table.
type Application struct {
	ID      FlexID  `json:"id"`
	Status  string  `json:"status"`
	JobID   *FlexID `json:"job_id"`
	Payload Payload `json:"payload,omitempty"`
}

// IsHired reports whether the status is "hired", ignoring case and surrounding space.
func (a *Application) IsHired() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), StatusHired)
}

// Certificate is a row of the certificates table.
type Certificate struct {
	ID           FlexID    `json:"id"`
	TrainingID   *FlexID   `json:"training_id"`
	EmployeeName string    `json:"employee_name"`
	EmployeeID   *FlexID   `json:"employee_id"`
	URL          string    `json:"url"`
	CreatedAt    Timestamp `json:"created_at"`
}

// AuthUser is an identity managed by the backend auth service.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Profile is a row of the profiles table. Its id equals the auth user id.
type Profile struct {
	ID        string `json:"id"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// HasRole reports whether the profile role equals role, ignoring case.
func (p *Profile) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Role), strings.TrimSpace(role))
}

// Notification is a row of the notifications table.
type Notification struct {
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Notification types.
const (
	NotificationPasswordReset = "password_reset"
)

// Roles recognized by the portal.
const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

// FormatNumber renders a decoded JSON number without a trailing ".0".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
