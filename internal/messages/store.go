package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateTurn indicates a turn with the same (tenant, fingerprint)
// already exists.
var ErrDuplicateTurn = errors.New("messages: duplicate turn")

const uniqueViolation = "23505"

// TurnStore persists conversation turns in Postgres for long-term history.
type TurnStore struct {
	db *sql.DB
}

// NewTurnStore creates a turn store.
func NewTurnStore(db *sql.DB) *TurnStore {
	if db == nil {
		panic("messages: db required")
	}
	return &TurnStore{db: db}
}

// Insert appends a turn. The unique (tenant_id, fingerprint) index is the
// durable duplicate guard; violations surface as ErrDuplicateTurn.
func (s *TurnStore) Insert(ctx context.Context, turn *Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.RepliedAt.IsZero() {
		turn.RepliedAt = time.Now().UTC()
	}

	var entities []byte
	if turn.Entities != nil {
		data, err := json.Marshal(turn.Entities)
		if err != nil {
			return fmt.Errorf("messages: encode entities: %w", err)
		}
		entities = data
	}

	query := `
		INSERT INTO turns (id, tenant_id, phone, name, message_at, fingerprint, text, intent, entities, reply, replied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		turn.ID,
		turn.TenantID,
		turn.Phone,
		turn.Name,
		turn.Timestamp,
		turn.Fingerprint,
		turn.Text,
		string(turn.Intent),
		entities,
		turn.Reply,
		turn.RepliedAt,
	).Scan(&turn.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateTurn
		}
		return fmt.Errorf("messages: insert turn: %w", err)
	}
	return nil
}

// Exists reports whether a turn with this (tenant, fingerprint) was already
// persisted.
func (s *TurnStore) Exists(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM turns WHERE tenant_id = $1 AND fingerprint = $2)`,
		tenantID, fingerprint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("messages: check fingerprint: %w", err)
	}
	return exists, nil
}

// Recent returns up to limit turns for (tenant, phone), most recent first.
func (s *TurnStore) Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, tenant_id, phone, name, message_at, fingerprint, text,
			COALESCE(intent, ''), entities, reply, replied_at, created_at
		FROM turns
		WHERE tenant_id = $1 AND phone = $2
		ORDER BY message_at DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn     Turn
			intent   string
			entities []byte
		)
		if err := rows.Scan(
			&turn.ID, &turn.TenantID, &turn.Phone, &turn.Name, &turn.Timestamp,
			&turn.Fingerprint, &turn.Text, &intent, &entities,
			&turn.Reply, &turn.RepliedAt, &turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("messages: scan turn: %w", err)
		}
		turn.Intent = Intent(intent)
		if len(entities) > 0 {
			var snapshot Snapshot
			if err := json.Unmarshal(entities, &snapshot); err != nil {
				return nil, fmt.Errorf("messages: decode entities: %w", err)
			}
			turn.Entities = &snapshot
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
