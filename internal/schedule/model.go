package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Appointment is one booked slot. End is always derived server-side from the
// start time plus the service duration; callers never supply it.
type Appointment struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	ClientID       uuid.UUID   `json:"client_id"`
	ServiceIDs     []uuid.UUID `json:"service_ids"`
	DocumentType   string      `json:"document_type"`
	DocumentNumber string      `json:"document_number"`
	FullName       string      `json:"full_name"`
	Date           string      `json:"date"`       // YYYY-MM-DD
	StartTime      string      `json:"start_time"` // HH:MM
	EndTime        string      `json:"end_time"`   // HH:MM
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CreateRequest carries everything needed to book an appointment.
type CreateRequest struct {
	TenantID        uuid.UUID
	ClientID        uuid.UUID
	ServiceIDs      []uuid.UUID
	DocumentType    string
	DocumentNumber  string
	FullName        string
	Date            string
	StartTime       string
	DurationMinutes int
}

// Slot is one free (date, time) candidate found by the resolver.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}
