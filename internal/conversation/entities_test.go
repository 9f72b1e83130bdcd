package conversation

import (
	"testing"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
)

func TestMergeSnapshotsPreservesOmittedFields(t *testing.T) {
	prev := messages.Snapshot{
		Date:      "2026-01-07",
		ServiceID: "svc-1",
		FullName:  "Maria Perez",
	}
	next := messages.Snapshot{
		DocumentType:   "CC",
		DocumentNumber: "1032456789",
		Ambiguous:      true,
	}

	merged := MergeSnapshots(prev, next)
	if merged.Date != "2026-01-07" || merged.ServiceID != "svc-1" || merged.FullName != "Maria Perez" {
		t.Fatalf("previous fields lost: %+v", merged)
	}
	if merged.DocumentType != "CC" || merged.DocumentNumber != "1032456789" {
		t.Fatalf("new fields not applied: %+v", merged)
	}
	if !merged.Ambiguous {
		t.Fatal("ambiguous must track the latest judgment")
	}
}

func TestMergeSnapshotsContradictionOverrides(t *testing.T) {
	prev := messages.Snapshot{Date: "2026-01-07", Time: "10:00"}
	next := messages.Snapshot{Date: "2026-01-09"}

	merged := MergeSnapshots(prev, next)
	if merged.Date != "2026-01-09" {
		t.Fatalf("explicit contradiction must win, got %s", merged.Date)
	}
	if merged.Time != "10:00" {
		t.Fatalf("untouched field must survive, got %s", merged.Time)
	}
}

func TestMergeSnapshotsConfirmedIsTerminal(t *testing.T) {
	prev := messages.Snapshot{
		Date:      "2026-01-07",
		Time:      "10:00",
		ServiceID: "svc-1",
		Confirmed: true,
	}
	next := messages.Snapshot{Date: "2026-02-01", Ambiguous: true}

	merged := MergeSnapshots(prev, next)
	if merged != prev {
		t.Fatalf("confirmed snapshot must be immutable, got %+v", merged)
	}
}

func TestMergeSnapshotsFlagsAreTurnLocal(t *testing.T) {
	prev := messages.Snapshot{Date: "2026-01-07", Ambiguous: true}
	next := messages.Snapshot{Confirmed: true}

	merged := MergeSnapshots(prev, next)
	if merged.Ambiguous {
		t.Fatal("ambiguous must be replaced by the latest judgment")
	}
	if !merged.Confirmed {
		t.Fatal("confirmed must take the oracle's latest judgment")
	}
}

func TestMergeSnapshotsHedgedConfirmationStaysOpen(t *testing.T) {
	prev := messages.Snapshot{Date: "2026-01-07", Time: "10:00", ServiceID: "svc-1"}
	next := messages.Snapshot{Confirmed: true, Ambiguous: true}

	merged := MergeSnapshots(prev, next)
	if merged.Confirmed {
		t.Fatal("a confirmation flagged ambiguous must not become terminal")
	}
	if !merged.Ambiguous {
		t.Fatal("the ambiguity must be kept for the clarification round")
	}
}

func TestMergeSnapshotsIgnoresOracleOverlap(t *testing.T) {
	prev := messages.Snapshot{Date: "2026-01-07", Overlapping: true}
	next := messages.Snapshot{Overlapping: false}

	merged := MergeSnapshots(prev, next)
	if !merged.Overlapping {
		t.Fatal("overlap flag is owned by the resolver, not the oracle")
	}
}

func TestFailedExtractionMergesOverPrevious(t *testing.T) {
	prev := messages.Snapshot{Date: "2026-01-07", ServiceID: "svc-1"}

	merged := MergeSnapshots(prev, FailedExtraction())
	if merged.Date != "2026-01-07" || merged.ServiceID != "svc-1" {
		t.Fatalf("degraded extraction must not lose gathered fields: %+v", merged)
	}
	if !merged.Ambiguous {
		t.Fatal("degraded extraction must mark the turn ambiguous")
	}
}

func TestLastKnownSnapshotScansBackward(t *testing.T) {
	withData := &messages.Snapshot{Date: "2026-01-07"}
	empty := &messages.Snapshot{}

	turns := []messages.Turn{
		{Text: "gracias", Entities: nil},           // most recent, no info
		{Text: "ok", Entities: empty},              // snapshot with nothing set
		{Text: "el miércoles", Entities: withData}, // the state to recover
		{Text: "hola"},
	}

	got := LastKnownSnapshot(turns)
	if got.Date != "2026-01-07" {
		t.Fatalf("expected backward scan to find the last informative turn, got %+v", got)
	}
}

func TestLastKnownSnapshotEmptyHistory(t *testing.T) {
	got := LastKnownSnapshot(nil)
	if got.HasSchedulingData() || got.Confirmed {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
}

func TestSanitizeTime(t *testing.T) {
	tenant := &tenancy.Tenant{Hours: map[string][]string{
		// 2026-01-07 is a Wednesday.
		"wednesday": {"08:00-12:00", "14:00-18:00"},
	}}

	inHours := SanitizeTime(messages.Snapshot{Date: "2026-01-07", Time: "10:00"}, tenant)
	if inHours.Time != "10:00" {
		t.Fatal("in-hours time must be kept")
	}

	outOfHours := SanitizeTime(messages.Snapshot{Date: "2026-01-07", Time: "13:00"}, tenant)
	if outOfHours.Time != "" {
		t.Fatalf("out-of-hours time must be discarded, got %q", outOfHours.Time)
	}

	closedDay := SanitizeTime(messages.Snapshot{Date: "2026-01-08", Time: "10:00"}, tenant)
	if closedDay.Time != "" {
		t.Fatal("time on a closed day must be discarded")
	}

	noDate := SanitizeTime(messages.Snapshot{Time: "13:00"}, tenant)
	if noDate.Time != "13:00" {
		t.Fatal("time without a resolved date cannot be validated yet")
	}

	badDate := SanitizeTime(messages.Snapshot{Date: "soon", Time: "10:00"}, tenant)
	if badDate.Date != "" {
		t.Fatal("unparseable date must be discarded")
	}
}
