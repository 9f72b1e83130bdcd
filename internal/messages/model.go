package messages

import (
	"time"

	"github.com/google/uuid"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentSchedule Intent = "schedule"
	IntentModify   Intent = "modify"
	IntentCancel   Intent = "cancel"
	IntentInform   Intent = "inform"
	IntentOther    Intent = "other"
)

// Valid reports whether the value is one of the closed intent set.
func (i Intent) Valid() bool {
	switch i {
	case IntentSchedule, IntentModify, IntentCancel, IntentInform, IntentOther:
		return true
	}
	return false
}

// Actionable reports whether the intent warrants slot extraction.
func (i Intent) Actionable() bool {
	return i == IntentSchedule || i == IntentModify || i == IntentCancel
}

// Snapshot is the accumulated slot-filling state as of one turn: the booking
// fields gathered so far plus three turn-local control flags.
type Snapshot struct {
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	ServiceID      string `json:"service_id,omitempty"`
	Date           string `json:"date,omitempty"` // YYYY-MM-DD
	Time           string `json:"time,omitempty"` // HH:MM

	// Ambiguous means the oracle could not confidently fill required slots.
	Ambiguous bool `json:"ambiguous"`
	// Overlapping is authoritative only from the availability resolver.
	Overlapping bool `json:"overlapping"`
	// Confirmed means the client explicitly approved the accumulated data.
	// Once set the snapshot is terminal and immutable.
	Confirmed bool `json:"confirmed"`
}

// HasSchedulingData reports whether any booking field is set.
func (s Snapshot) HasSchedulingData() bool {
	return s.DocumentType != "" || s.DocumentNumber != "" || s.FullName != "" ||
		s.ServiceID != "" || s.Date != "" || s.Time != ""
}

// MissingFields lists the booking fields still needed before confirmation.
func (s Snapshot) MissingFields() []string {
	var missing []string
	if s.DocumentType == "" {
		missing = append(missing, "document type")
	}
	if s.DocumentNumber == "" {
		missing = append(missing, "document number")
	}
	if s.FullName == "" {
		missing = append(missing, "full name")
	}
	if s.ServiceID == "" {
		missing = append(missing, "service")
	}
	if s.Date == "" {
		missing = append(missing, "date")
	}
	if s.Time == "" {
		missing = append(missing, "time")
	}
	return missing
}

// Complete reports whether every booking field is filled.
func (s Snapshot) Complete() bool {
	return len(s.MissingFields()) == 0
}

// Turn is one inbound message plus the system's reply. Immutable once
// created; the pipeline appends exactly one turn per processed message.
type Turn struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Phone       string    `json:"phone"`
	Name        string    `json:"name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Fingerprint string    `json:"-"`
	Text        string    `json:"text"`
	Intent      Intent    `json:"intent,omitempty"`
	Entities    *Snapshot `json:"entities,omitempty"`
	Reply       string    `json:"reply"`
	RepliedAt   time.Time `json:"replied_at"`
	CreatedAt   time.Time `json:"created_at"`
}
