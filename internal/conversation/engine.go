package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/internal/clients"
	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// ClientRegistry lazily materializes (tenant, phone) clients.
type ClientRegistry interface {
	Upsert(ctx context.Context, tenantID uuid.UUID, phone, name string) (*clients.Client, error)
}

// Deduper answers whether a fingerprint was already processed and records
// processed ones. Mark is best-effort; the turn log's unique constraint is
// the durable guard.
type Deduper interface {
	Seen(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error)
	Mark(ctx context.Context, tenantID uuid.UUID, fingerprint string)
}

// AppointmentBook is the appointment persistence the engine writes to and
// reads booking context from.
type AppointmentBook interface {
	Create(ctx context.Context, req schedule.CreateRequest) (*schedule.Appointment, error)
	ListByDate(ctx context.Context, tenantID uuid.UUID, date string) ([]schedule.Appointment, error)
}

// Availability is the overlap/next-slot resolver contract.
type Availability interface {
	HasConflict(ctx context.Context, tenantID uuid.UUID, date, startTime string, durationMinutes int) (bool, error)
	NextFreeSlot(ctx context.Context, tenantID uuid.UUID, fromDate string, hoursFor func(time.Time) []string) (*schedule.Slot, error)
}

// Inbound is one message handed over by the transport layer.
type Inbound struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Phone       string    `json:"phone"`
	DisplayName string    `json:"display_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Text        string    `json:"text"`
	// SourceKey identifies the upstream delivery; logged, never reasoned over.
	SourceKey string `json:"source_key,omitempty"`
}

// Result is the outcome of processing one inbound message. Duplicate results
// carry no reply and no turn.
type Result struct {
	Duplicate bool           `json:"duplicate"`
	Reply     string         `json:"reply,omitempty"`
	Turn      *messages.Turn `json:"turn,omitempty"`
}

// Engine runs the whole per-message pipeline: dedup, client upsert, context
// assembly, intent gating, slot extraction and merge, availability
// resolution, booking, reply, and turn persistence. One Process call handles
// exactly one message; the engine holds no per-conversation state between
// calls.
type Engine struct {
	builder  *ContextBuilder
	clients  ClientRegistry
	turns    TurnLog
	deduper  Deduper
	gate     *Gate
	oracle   Oracle
	composer *Composer
	appts    AppointmentBook
	resolver Availability
	logger   *logging.Logger

	now func() time.Time
}

// EngineParams collects the engine's collaborators.
type EngineParams struct {
	Builder  *ContextBuilder
	Clients  ClientRegistry
	Turns    TurnLog
	Deduper  Deduper
	Gate     *Gate
	Oracle   Oracle
	Composer *Composer
	Book     AppointmentBook
	Resolver Availability
	Logger   *logging.Logger
}

// NewEngine wires the pipeline.
func NewEngine(p EngineParams) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		builder:  p.Builder,
		clients:  p.Clients,
		turns:    p.Turns,
		deduper:  p.Deduper,
		gate:     p.Gate,
		oracle:   p.Oracle,
		composer: p.Composer,
		appts:    p.Book,
		resolver: p.Resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Process handles one inbound message end to end. A duplicate message is a
// no-op, not an error. An unknown tenant or a persistence failure aborts the
// message with an error and no turn; oracle failures never do.
func (e *Engine) Process(ctx context.Context, in Inbound) (*Result, error) {
	phone := clients.NormalizePhone(in.Phone)
	fingerprint := messages.Fingerprint(phone, in.Timestamp, in.Text)

	log := e.logger.With(
		"tenant_id", in.TenantID.String(),
		"phone", phone,
		"source_key", in.SourceKey,
	)

	seen, err := e.deduper.Seen(ctx, in.TenantID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("conversation: dedup check: %w", err)
	}
	if seen {
		log.Info("duplicate message skipped")
		return &Result{Duplicate: true}, nil
	}

	convCtx, err := e.builder.Build(ctx, in.TenantID, phone)
	if err != nil {
		return nil, err
	}

	client, err := e.clients.Upsert(ctx, in.TenantID, phone, in.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("conversation: upsert client: %w", err)
	}

	turn := &messages.Turn{
		ID:          uuid.New(),
		TenantID:    in.TenantID,
		Phone:       phone,
		Name:        client.Name,
		Timestamp:   in.Timestamp,
		Fingerprint: fingerprint,
		Text:        in.Text,
	}

	if convCtx.FirstContact() {
		turn.Reply = e.composer.Greeting(ctx, convCtx)
	} else {
		classification := e.gate.Evaluate(ctx, convCtx, in.Text)
		turn.Intent = classification.Intent
		log.Info("message classified",
			"intent", string(classification.Intent),
			"confidence", classification.Confidence,
		)

		if classification.Intent.Actionable() {
			if err := e.runSchedulingFlow(ctx, convCtx, client, in, turn, log); err != nil {
				return nil, err
			}
		} else {
			turn.Reply = e.composer.Generic(ctx, convCtx, in.Text)
		}
	}

	turn.RepliedAt = e.now().UTC()
	if err := e.turns.Insert(ctx, turn); err != nil {
		if errors.Is(err, messages.ErrDuplicateTurn) {
			log.Info("duplicate message caught at insert")
			return &Result{Duplicate: true}, nil
		}
		return nil, fmt.Errorf("conversation: persist turn: %w", err)
	}
	e.deduper.Mark(ctx, in.TenantID, fingerprint)

	return &Result{Reply: turn.Reply, Turn: turn}, nil
}

// runSchedulingFlow drives extraction, merging, availability resolution, and
// booking for schedule/modify/cancel messages. It fills turn.Entities and
// turn.Reply in place.
func (e *Engine) runSchedulingFlow(ctx context.Context, convCtx *Context, client *clients.Client, in Inbound, turn *messages.Turn, log *logging.Logger) error {
	prev := LastKnownSnapshot(convCtx.Turns)

	if prev.Confirmed {
		// Terminal state: the gathered data is immutable, nothing to extract.
		turn.Entities = &prev
		turn.Reply = e.composer.Generic(ctx, convCtx, in.Text)
		return nil
	}

	merged := e.extractAndMerge(ctx, convCtx, in, prev, log)

	if turn.Intent == messages.IntentCancel {
		turn.Entities = &merged
		turn.Reply = e.composer.CancelAck(ctx, convCtx, &merged)
		return nil
	}

	if merged.Date != "" && merged.Time != "" && merged.ServiceID != "" {
		svc, ok := convCtx.ServiceByID(merged.ServiceID)
		if !ok {
			log.Warn("oracle returned unknown service id", "service_id", merged.ServiceID)
			merged.ServiceID = ""
			// No conflict check ran this turn, so a stale overlap flag
			// from an earlier snapshot must not drive the reply.
			merged.Overlapping = false
		} else {
			conflict, err := e.resolver.HasConflict(ctx, convCtx.Tenant.ID, merged.Date, merged.Time, svc.DurationMinutes)
			if err != nil {
				return fmt.Errorf("conversation: overlap check: %w", err)
			}
			merged.Overlapping = conflict
		}
	}
	turn.Entities = &merged

	switch {
	case merged.Overlapping:
		alt, err := e.resolver.NextFreeSlot(ctx, convCtx.Tenant.ID, merged.Date, convCtx.Tenant.HoursFor)
		if err != nil {
			log.Warn("next-free-slot search failed", "error", err)
			alt = nil
		}
		turn.Reply = e.composer.Overlap(ctx, convCtx, &merged, alt)

	case merged.Confirmed && !merged.Ambiguous && merged.Complete():
		svc, _ := convCtx.ServiceByID(merged.ServiceID)
		appt, err := e.appts.Create(ctx, schedule.CreateRequest{
			TenantID:        convCtx.Tenant.ID,
			ClientID:        client.ID,
			ServiceIDs:      []uuid.UUID{svc.ID},
			DocumentType:    merged.DocumentType,
			DocumentNumber:  merged.DocumentNumber,
			FullName:        merged.FullName,
			Date:            merged.Date,
			StartTime:       merged.Time,
			DurationMinutes: svc.DurationMinutes,
		})
		if err != nil {
			return fmt.Errorf("conversation: create appointment: %w", err)
		}
		log.Info("appointment created",
			"appointment_id", appt.ID.String(),
			"date", appt.Date,
			"start_time", appt.StartTime,
		)
		turn.Reply = e.composer.Booked(ctx, convCtx, appt, svc.Name)

	case merged.Ambiguous && !merged.HasSchedulingData():
		turn.Reply = e.composer.Clarify(ctx, convCtx)

	case !merged.Complete():
		turn.Reply = e.composer.AskMissing(ctx, convCtx, &merged)

	default:
		svc, _ := convCtx.ServiceByID(merged.ServiceID)
		name := ""
		if svc != nil {
			name = svc.Name
		}
		turn.Reply = e.composer.Confirm(ctx, convCtx, &merged, name)
	}
	return nil
}

// extractAndMerge calls the extraction oracle and folds its partial output
// into the previous snapshot. Any oracle failure degrades to an ambiguous
// result merged over the previous fields, so nothing already gathered is
// lost.
func (e *Engine) extractAndMerge(ctx context.Context, convCtx *Context, in Inbound, prev messages.Snapshot, log *logging.Logger) messages.Snapshot {
	req := ExtractRequest{
		Message:        in.Text,
		Previous:       prev,
		Transcript:     convCtx.Transcript,
		ServiceCatalog: convCtx.Catalog(),
		OperatingHours: convCtx.Tenant.Hours,
		Today:          e.now().UTC().Format(schedule.DateLayout),
	}
	if prev.Date != "" {
		booked, err := e.appts.ListByDate(ctx, convCtx.Tenant.ID, prev.Date)
		if err != nil {
			log.Warn("booked-slot lookup failed", "date", prev.Date, "error", err)
		}
		for _, appt := range booked {
			req.BookedForDate = append(req.BookedForDate, BookedSlot{
				Start: appt.StartTime,
				End:   appt.EndTime,
			})
		}
	}

	if e.oracle == nil {
		return SanitizeTime(MergeSnapshots(prev, FailedExtraction()), convCtx.Tenant)
	}

	next, err := e.oracle.Extract(ctx, req)
	if err != nil {
		log.Warn("entity extraction failed, asking again", "error", err)
		next = FailedExtraction()
	}

	merged := MergeSnapshots(prev, next)
	return SanitizeTime(merged, convCtx.Tenant)
}
