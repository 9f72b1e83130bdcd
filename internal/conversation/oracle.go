package conversation

import (
	"context"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
)

// Classification is the oracle's judgment of what the client wants.
type Classification struct {
	Intent     messages.Intent `json:"intent"`
	Confidence float64         `json:"confidence"`
}

// ClassifyRequest carries the new message plus the recent transcript.
type ClassifyRequest struct {
	Message    string
	Transcript []ChatMessage
}

// ExtractRequest carries everything the oracle needs to update the
// slot-filling state: the new message, the previous snapshot, and the static
// reference data it may resolve values against.
type ExtractRequest struct {
	Message        string
	Previous       messages.Snapshot
	Transcript     []ChatMessage
	ServiceCatalog []CatalogEntry
	OperatingHours map[string][]string
	Today          string // YYYY-MM-DD, anchor for relative dates
	BookedForDate  []BookedSlot
}

// CatalogEntry is the service reference data shown to the oracle.
type CatalogEntry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// BookedSlot tells the oracle which times are already taken on the
// requested date so it can steer the client toward free ones.
type BookedSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ReplyRequest asks the oracle to phrase the outbound reply.
type ReplyRequest struct {
	Transcript  []ChatMessage
	Instruction string
}

// Oracle is the external natural-language reasoning service. Implementations
// may fail; callers own the degradation rules — classification falls back to
// {other, 0} and extraction to an ambiguous snapshot, so the conversation
// continues degraded rather than broken.
type Oracle interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
	Extract(ctx context.Context, req ExtractRequest) (messages.Snapshot, error)
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}
