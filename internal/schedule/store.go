package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments in Postgres.
type Store struct {
	pool Querier
}

// NewStore initializes a store backed by a pgx pool.
func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &Store{pool: pool}
}

// Create books an appointment, computing the end time from the start time
// plus the service duration.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if len(req.ServiceIDs) == 0 {
		return nil, fmt.Errorf("schedule: at least one service is required")
	}
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("schedule: duration must be positive")
	}
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end := start + req.DurationMinutes
	if end > 24*60 {
		return nil, fmt.Errorf("schedule: appointment would run past midnight")
	}

	appt := &Appointment{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		ClientID:       req.ClientID,
		ServiceIDs:     req.ServiceIDs,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		FullName:       req.FullName,
		Date:           req.Date,
		StartTime:      FormatClock(start),
		EndTime:        FormatClock(end),
		Status:         StatusPending,
	}

	query := `
		INSERT INTO appointments (id, tenant_id, client_id, service_ids, document_type,
			document_number, full_name, date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	if err := s.pool.QueryRow(ctx, query,
		appt.ID, appt.TenantID, appt.ClientID, appt.ServiceIDs,
		appt.DocumentType, appt.DocumentNumber, appt.FullName,
		appt.Date, appt.StartTime, appt.EndTime, string(appt.Status),
	).Scan(&appt.CreatedAt); err != nil {
		return nil, fmt.Errorf("schedule: insert appointment: %w", err)
	}
	return appt, nil
}

// ListByDate returns non-cancelled appointments for (tenant, date) sorted by
// start time.
func (s *Store) ListByDate(ctx context.Context, tenantID uuid.UUID, date string) ([]Appointment, error) {
	query := `
		SELECT id, tenant_id, client_id, service_ids, document_type, document_number,
			full_name, date, start_time, end_time, status, created_at
		FROM appointments
		WHERE tenant_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_time
	`
	rows, err := s.pool.Query(ctx, query, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("schedule: list appointments: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		var (
			appt   Appointment
			status string
		)
		if err := rows.Scan(
			&appt.ID, &appt.TenantID, &appt.ClientID, &appt.ServiceIDs,
			&appt.DocumentType, &appt.DocumentNumber, &appt.FullName,
			&appt.Date, &appt.StartTime, &appt.EndTime, &status, &appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("schedule: scan appointment: %w", err)
		}
		appt.Status = Status(status)
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// UpdateStatus moves an appointment to a new lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("schedule: invalid status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2 AND tenant_id = $3`,
		string(status), id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("schedule: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule: appointment %s not found", id)
	}
	return nil
}
