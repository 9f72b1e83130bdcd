package conversation

import (
	"time"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
)

// MergeSnapshots combines the previous slot-filling state with a fresh
// extraction. For every booking field the new value wins only when the
// oracle set it to something non-empty; an omission keeps the previous
// value, so fields gathered in earlier turns survive turns that add nothing.
//
// Ambiguous and confirmed are turn-local judgments and always taken from the
// extraction. Overlapping is owned by the availability resolver and is never
// taken from the oracle; the caller stamps it afterwards.
//
// A previous snapshot that is already confirmed is terminal: it is returned
// unchanged and the extraction is ignored.
func MergeSnapshots(prev, next messages.Snapshot) messages.Snapshot {
	if prev.Confirmed {
		return prev
	}

	merged := prev
	if next.DocumentType != "" {
		merged.DocumentType = next.DocumentType
	}
	if next.DocumentNumber != "" {
		merged.DocumentNumber = next.DocumentNumber
	}
	if next.FullName != "" {
		merged.FullName = next.FullName
	}
	if next.ServiceID != "" {
		merged.ServiceID = next.ServiceID
	}
	if next.Date != "" {
		merged.Date = next.Date
	}
	if next.Time != "" {
		merged.Time = next.Time
	}

	merged.Ambiguous = next.Ambiguous
	// A confirmation the oracle itself flags as ambiguous is no
	// confirmation: treating it as one would make the snapshot terminal
	// and book on a hedge.
	merged.Confirmed = next.Confirmed && !next.Ambiguous
	merged.Overlapping = prev.Overlapping
	return merged
}

// FailedExtraction is the degraded result when the oracle's output cannot be
// used: ask again, never invent data. The caller merges it over the previous
// snapshot so nothing already gathered is lost.
func FailedExtraction() messages.Snapshot {
	return messages.Snapshot{Ambiguous: true, Overlapping: false}
}

// LastKnownSnapshot scans the recent turns (most recent first) for the
// latest one carrying any scheduling field, skipping turns that added no
// information. Returns a zero snapshot when the conversation has no
// slot-filling state yet.
func LastKnownSnapshot(turns []messages.Turn) messages.Snapshot {
	for _, turn := range turns {
		if turn.Entities != nil && turn.Entities.HasSchedulingData() {
			return *turn.Entities
		}
	}
	return messages.Snapshot{}
}

// SanitizeTime discards a time of day that falls outside the tenant's
// operating hours for the snapshot's date, forcing another clarification
// round instead of silently accepting an unbookable slot. A time without a
// resolved date is kept; it cannot be validated yet.
func SanitizeTime(snapshot messages.Snapshot, tenant *tenancy.Tenant) messages.Snapshot {
	if snapshot.Time == "" || snapshot.Date == "" {
		return snapshot
	}
	day, err := time.Parse(schedule.DateLayout, snapshot.Date)
	if err != nil {
		snapshot.Date = ""
		return snapshot
	}
	if !schedule.WithinAny(snapshot.Time, tenant.HoursFor(day)) {
		snapshot.Time = ""
	}
	return snapshot
}
