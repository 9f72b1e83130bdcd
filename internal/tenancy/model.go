package tenancy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTenantNotFound indicates the tenant does not exist or is inactive.
var ErrTenantNotFound = errors.New("tenancy: tenant not found")

// ErrAPIKeyNotFound indicates no active API key matched.
var ErrAPIKeyNotFound = errors.New("tenancy: api key not found")

var hoursPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]-([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Contact holds the tenant's public contact details.
type Contact struct {
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	WhatsApp string `json:"whatsapp"`
}

// Policies bound how far out and how late clients may act on appointments.
type Policies struct {
	MinCancelNoticeHours int `json:"min_cancel_notice_hours"`
	MaxAdvanceDays       int `json:"max_advance_days"`
}

// Service is one bookable offering with a fixed duration.
type Service struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
}

// Tenant is one business using the assistant. Read-only to the message
// pipeline; created and managed through the admin API.
type Tenant struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Sector  string    `json:"sector"`
	Address string    `json:"address"`
	Contact Contact   `json:"contact"`
	// Weekly operating hours: lowercase english day name to an ordered
	// list of "HH:MM-HH:MM" open intervals.
	Hours     map[string][]string `json:"hours"`
	Policies  Policies            `json:"policies"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// CreateTenantRequest is the admin API body for onboarding a tenant.
type CreateTenantRequest struct {
	Name     string              `json:"name"`
	Sector   string              `json:"sector"`
	Address  string              `json:"address"`
	Contact  Contact             `json:"contact"`
	Hours    map[string][]string `json:"hours"`
	Policies Policies            `json:"policies"`
}

// Validate checks required fields and hour interval formats.
func (r *CreateTenantRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("tenancy: name is required")
	}
	if strings.TrimSpace(r.Contact.Phone) == "" {
		return errors.New("tenancy: contact phone is required")
	}
	if len(r.Hours) == 0 {
		return errors.New("tenancy: operating hours are required")
	}
	for day, intervals := range r.Hours {
		for _, interval := range intervals {
			if !hoursPattern.MatchString(interval) {
				return fmt.Errorf("tenancy: invalid interval %q for %s, want HH:MM-HH:MM", interval, day)
			}
		}
	}
	if r.Policies.MinCancelNoticeHours < 24 {
		return errors.New("tenancy: min cancel notice must be at least 24 hours")
	}
	if r.Policies.MaxAdvanceDays < 1 || r.Policies.MaxAdvanceDays > 30 {
		return errors.New("tenancy: max advance days must be between 1 and 30")
	}
	return nil
}

// HoursFor returns the open intervals for a calendar date, keyed by weekday.
func (t *Tenant) HoursFor(date time.Time) []string {
	if t == nil || t.Hours == nil {
		return nil
	}
	return t.Hours[strings.ToLower(date.Weekday().String())]
}
