package tenancy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs, so tests can
// substitute pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists tenants, services and API keys in Postgres.
type Store struct {
	pool Querier
}

// NewStore initializes a store backed by a pgx pool.
func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("tenancy: pgx pool required")
	}
	return &Store{pool: pool}
}

// Create inserts a new tenant with its hours and policies as JSON documents.
func (s *Store) Create(ctx context.Context, req *CreateTenantRequest) (*Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hours, err := json.Marshal(req.Hours)
	if err != nil {
		return nil, fmt.Errorf("tenancy: encode hours: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO tenants (id, name, sector, address, contact_phone, contact_email, contact_whatsapp,
			hours, min_cancel_notice_hours, max_advance_days, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := s.pool.QueryRow(ctx, query,
		id,
		req.Name,
		req.Sector,
		req.Address,
		req.Contact.Phone,
		req.Contact.Email,
		req.Contact.WhatsApp,
		hours,
		req.Policies.MinCancelNoticeHours,
		req.Policies.MaxAdvanceDays,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("tenancy: insert tenant: %w", err)
	}

	return &Tenant{
		ID:        id,
		Name:      req.Name,
		Sector:    req.Sector,
		Address:   req.Address,
		Contact:   req.Contact,
		Hours:     req.Hours,
		Policies:  req.Policies,
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// GetByID fetches an active tenant.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, name, sector, address, contact_phone, contact_email, contact_whatsapp,
			hours, min_cancel_notice_hours, max_advance_days, active, created_at, updated_at
		FROM tenants
		WHERE id = $1 AND active
	`
	row := s.pool.QueryRow(ctx, query, id)
	tenant, err := scanTenant(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenancy: select tenant: %w", err)
	}
	return tenant, nil
}

// List returns all active tenants.
func (s *Store) List(ctx context.Context) ([]*Tenant, error) {
	query := `
		SELECT id, name, sector, address, contact_phone, contact_email, contact_whatsapp,
			hours, min_cancel_notice_hours, max_advance_days, active, created_at, updated_at
		FROM tenants
		WHERE active
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("tenancy: scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// Deactivate soft-deletes a tenant.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tenancy: deactivate tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// CreateService adds a bookable service to a tenant's catalog.
func (s *Store) CreateService(ctx context.Context, tenantID uuid.UUID, name string, durationMinutes int) (*Service, error) {
	if name == "" {
		return nil, fmt.Errorf("tenancy: service name is required")
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("tenancy: service duration must be positive")
	}
	id := uuid.New()
	query := `
		INSERT INTO services (id, tenant_id, name, duration_minutes, active)
		VALUES ($1, $2, $3, $4, TRUE)
	`
	if _, err := s.pool.Exec(ctx, query, id, tenantID, name, durationMinutes); err != nil {
		return nil, fmt.Errorf("tenancy: insert service: %w", err)
	}
	return &Service{ID: id, TenantID: tenantID, Name: name, DurationMinutes: durationMinutes, Active: true}, nil
}

// ListServices returns the active service catalog for a tenant.
func (s *Store) ListServices(ctx context.Context, tenantID uuid.UUID) ([]Service, error) {
	query := `
		SELECT id, tenant_id, name, duration_minutes, active
		FROM services
		WHERE tenant_id = $1 AND active
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.TenantID, &svc.Name, &svc.DurationMinutes, &svc.Active); err != nil {
			return nil, fmt.Errorf("tenancy: scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// LookupAPIKey resolves an active API key to its tenant.
func (s *Store) LookupAPIKey(ctx context.Context, key string) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id FROM api_keys WHERE key = $1 AND active`, key,
	).Scan(&tenantID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, ErrAPIKeyNotFound
		}
		return uuid.Nil, fmt.Errorf("tenancy: lookup api key: %w", err)
	}
	return tenantID, nil
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var (
		tenant   Tenant
		hoursRaw []byte
	)
	if err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Sector,
		&tenant.Address,
		&tenant.Contact.Phone,
		&tenant.Contact.Email,
		&tenant.Contact.WhatsApp,
		&hoursRaw,
		&tenant.Policies.MinCancelNoticeHours,
		&tenant.Policies.MaxAdvanceDays,
		&tenant.Active,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(hoursRaw) > 0 {
		if err := json.Unmarshal(hoursRaw, &tenant.Hours); err != nil {
			return nil, fmt.Errorf("tenancy: decode hours: %w", err)
		}
	}
	return &tenant, nil
}
