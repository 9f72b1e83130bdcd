package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreCreateComputesEndTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	clientID := uuid.New()
	serviceID := uuid.New()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), tenantID, clientID, []uuid.UUID{serviceID},
			"CC", "1032456789", "Maria Perez", "2026-01-07", "10:00", "10:45", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	store := NewStore(mock)
	appt, err := store.Create(context.Background(), CreateRequest{
		TenantID:        tenantID,
		ClientID:        clientID,
		ServiceIDs:      []uuid.UUID{serviceID},
		DocumentType:    "CC",
		DocumentNumber:  "1032456789",
		FullName:        "Maria Perez",
		Date:            "2026-01-07",
		StartTime:       "10:00",
		DurationMinutes: 45,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.EndTime != "10:45" {
		t.Fatalf("expected derived end 10:45, got %s", appt.EndTime)
	}
	if appt.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", appt.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreCreateRejectsBadInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	base := CreateRequest{
		TenantID:        uuid.New(),
		ClientID:        uuid.New(),
		ServiceIDs:      []uuid.UUID{uuid.New()},
		Date:            "2026-01-07",
		StartTime:       "10:00",
		DurationMinutes: 30,
	}

	noServices := base
	noServices.ServiceIDs = nil
	if _, err := store.Create(context.Background(), noServices); err == nil {
		t.Error("expected error for missing services")
	}

	badDuration := base
	badDuration.DurationMinutes = 0
	if _, err := store.Create(context.Background(), badDuration); err == nil {
		t.Error("expected error for zero duration")
	}

	pastMidnight := base
	pastMidnight.StartTime = "23:45"
	if _, err := store.Create(context.Background(), pastMidnight); err == nil {
		t.Error("expected error for slot running past midnight")
	}
}

func TestStoreListByDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "client_id", "service_ids", "document_type", "document_number",
		"full_name", "date", "start_time", "end_time", "status", "created_at",
	}).AddRow(
		uuid.New(), tenantID, uuid.New(), []uuid.UUID{uuid.New()}, "CC", "123",
		"Maria Perez", "2026-01-07", "09:00", "09:30", "pending", time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(tenantID, "2026-01-07").
		WillReturnRows(rows)

	store := NewStore(mock)
	appts, err := store.ListByDate(context.Background(), tenantID, "2026-01-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 1 || appts[0].StartTime != "09:00" {
		t.Fatalf("unexpected appointments %+v", appts)
	}
}

func TestStoreUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	id := uuid.New()
	mock.ExpectExec("UPDATE appointments").
		WithArgs("cancelled", id, tenantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	if err := store.UpdateStatus(context.Background(), tenantID, id, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.UpdateStatus(context.Background(), tenantID, id, Status("archived")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
