package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
)

// TenantDirectory supplies the read-only tenant profile and catalog.
type TenantDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error)
	ListServices(ctx context.Context, tenantID uuid.UUID) ([]tenancy.Service, error)
}

// TurnLog is the persisted conversation history.
type TurnLog interface {
	Insert(ctx context.Context, turn *messages.Turn) error
	Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]messages.Turn, error)
}

// Context is everything downstream reasoning may see for one message: the
// tenant profile, the service catalog, and the recent history. Internal
// control fields (fingerprints) never reach the transcript.
type Context struct {
	Tenant   *tenancy.Tenant
	Services []tenancy.Service
	// Turns is the bounded history window, most recent first, as fetched.
	Turns []messages.Turn
	// Transcript is the same history rendered chronologically as
	// role-tagged chat messages for the oracle.
	Transcript []ChatMessage
}

// Catalog converts the services to the reference shape shown to the oracle.
func (c *Context) Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(c.Services))
	for _, svc := range c.Services {
		entries = append(entries, CatalogEntry{
			ID:              svc.ID.String(),
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
		})
	}
	return entries
}

// ServiceByID finds a catalog service by its string id.
func (c *Context) ServiceByID(id string) (*tenancy.Service, bool) {
	for i := range c.Services {
		if c.Services[i].ID.String() == id {
			return &c.Services[i], true
		}
	}
	return nil, false
}

// FirstContact reports whether this client has no prior turns.
func (c *Context) FirstContact() bool {
	return len(c.Turns) == 0
}

// ContextBuilder assembles the per-message Context from the tenant directory
// and the turn log.
type ContextBuilder struct {
	tenants TenantDirectory
	turns   TurnLog
	window  int
}

// NewContextBuilder creates a builder with the given history window size.
func NewContextBuilder(tenants TenantDirectory, turns TurnLog, window int) *ContextBuilder {
	if window <= 0 {
		window = 10
	}
	return &ContextBuilder{tenants: tenants, turns: turns, window: window}
}

// Build loads the tenant profile and the recent history for (tenant, phone).
func (b *ContextBuilder) Build(ctx context.Context, tenantID uuid.UUID, phone string) (*Context, error) {
	tenant, err := b.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	services, err := b.tenants.ListServices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("conversation: load catalog: %w", err)
	}
	turns, err := b.turns.Recent(ctx, tenantID, phone, b.window)
	if err != nil {
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}

	return &Context{
		Tenant:     tenant,
		Services:   services,
		Turns:      turns,
		Transcript: renderTranscript(turns),
	}, nil
}

// renderTranscript flattens the history into chronological role-tagged
// lines. Retrieval order is most-recent-first, so the walk is reversed for
// presentation. Each historical turn contributes what the client said, with
// the detected intent and gathered fields when present, followed by the
// assistant's prior reply.
func renderTranscript(turns []messages.Turn) []ChatMessage {
	transcript := make([]ChatMessage, 0, len(turns)*2)
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]

		line := "The client said: " + turn.Text
		if turn.Intent != "" {
			line += fmt.Sprintf(" (detected intent: %s)", turn.Intent)
		}
		if turn.Entities != nil && turn.Entities.HasSchedulingData() {
			if gathered, err := json.Marshal(turn.Entities); err == nil {
				line += fmt.Sprintf(" (gathered so far: %s)", gathered)
			}
		}
		transcript = append(transcript, ChatMessage{Role: ChatRoleUser, Content: line})

		if turn.Reply != "" {
			transcript = append(transcript, ChatMessage{Role: ChatRoleAssistant, Content: turn.Reply})
		}
	}
	return transcript
}
