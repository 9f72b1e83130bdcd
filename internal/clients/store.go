package clients

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

// Store persists clients in Postgres.
type Store struct {
	pool Querier
}

// NewStore initializes a store backed by a pgx pool.
func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &Store{pool: pool}
}

// Upsert finds or creates the client for (tenant, phone). The phone is
// normalized before lookup so retransmissions with different formatting
// collapse to the same row. An existing empty name is backfilled when the
// channel supplies one.
func (s *Store) Upsert(ctx context.Context, tenantID uuid.UUID, phone, name string) (*Client, error) {
	canonical := NormalizePhone(phone)
	if canonical == "" {
		return nil, fmt.Errorf("clients: phone is required")
	}

	id := uuid.New()
	query := `
		INSERT INTO clients (id, tenant_id, phone, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, phone) DO UPDATE
			SET name = CASE WHEN clients.name = '' THEN EXCLUDED.name ELSE clients.name END
		RETURNING id, name, created_at
	`
	client := &Client{TenantID: tenantID, Phone: canonical}
	if err := s.pool.QueryRow(ctx, query, id, tenantID, canonical, name).
		Scan(&client.ID, &client.Name, &client.CreatedAt); err != nil {
		return nil, fmt.Errorf("clients: upsert: %w", err)
	}
	return client, nil
}

// GetByPhone fetches the client for (tenant, phone) if it exists.
func (s *Store) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error) {
	canonical := NormalizePhone(phone)
	query := `
		SELECT id, tenant_id, phone, name, created_at
		FROM clients
		WHERE tenant_id = $1 AND phone = $2
	`
	var client Client
	err := s.pool.QueryRow(ctx, query, tenantID, canonical).Scan(
		&client.ID, &client.TenantID, &client.Phone, &client.Name, &client.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("clients: select: %w", err)
	}
	return &client, nil
}
