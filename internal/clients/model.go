package clients

import (
	"time"

	"github.com/google/uuid"
)

// Client is one person chatting with a tenant, keyed by (tenant, phone).
// Created lazily on first contact and never deleted by the pipeline.
type Client struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
