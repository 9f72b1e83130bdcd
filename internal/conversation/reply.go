package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Composer produces the outbound reply text. Every path has a deterministic
// sentence that stands on its own; when an oracle is available the sentence
// is handed to it as an instruction so the wording matches the conversation's
// tone. Oracle failures fall back to the deterministic text, never to an
// error surfaced to the client.
type Composer struct {
	oracle Oracle
	logger *logging.Logger
}

// NewComposer creates a reply composer. A nil oracle disables polishing and
// every reply is the deterministic fallback.
func NewComposer(oracle Oracle, logger *logging.Logger) *Composer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Composer{oracle: oracle, logger: logger}
}

// Greeting answers a client's very first message.
func (c *Composer) Greeting(ctx context.Context, convCtx *Context) string {
	fallback := fmt.Sprintf(
		"Hi! Welcome to %s. I can help you schedule, reschedule, or cancel an appointment. How can I help you today?",
		convCtx.Tenant.Name,
	)
	instruction := "Greet the client warmly on behalf of " + convCtx.Tenant.Name +
		" and offer to schedule, reschedule, or cancel an appointment."
	return c.polish(ctx, convCtx, instruction, fallback)
}

// AskMissing requests the booking fields still absent from the snapshot.
func (c *Composer) AskMissing(ctx context.Context, convCtx *Context, snapshot *messages.Snapshot) string {
	missing := snapshot.MissingFields()
	fallback := fmt.Sprintf(
		"To book your appointment I still need your %s. Could you share that with me?",
		humanJoin(missing),
	)
	instruction := fmt.Sprintf(
		"Acknowledge what the client already provided and ask, in one short message, for their %s.",
		humanJoin(missing),
	)
	return c.polish(ctx, convCtx, instruction, fallback)
}

// Clarify asks the client to restate an ambiguous request.
func (c *Composer) Clarify(ctx context.Context, convCtx *Context) string {
	fallback := "Sorry, I didn't quite catch that. Could you tell me again which service you'd like and when?"
	instruction := "The last message was unclear. Politely ask the client to restate which service they want and their preferred date and time."
	return c.polish(ctx, convCtx, instruction, fallback)
}

// Overlap tells the client their requested slot is taken, suggesting the
// next free slot when one exists.
func (c *Composer) Overlap(ctx context.Context, convCtx *Context, snapshot *messages.Snapshot, alt *schedule.Slot) string {
	var fallback, instruction string
	if alt != nil {
		fallback = fmt.Sprintf(
			"Unfortunately %s at %s is already taken. The next available slot is %s at %s — would that work for you?",
			snapshot.Date, snapshot.Time, alt.Date, alt.Time,
		)
		instruction = fmt.Sprintf(
			"The requested slot %s %s is taken. Offer the alternative %s at %s and ask whether it works.",
			snapshot.Date, snapshot.Time, alt.Date, alt.Time,
		)
	} else {
		fallback = fmt.Sprintf(
			"Unfortunately %s at %s is already taken, and I couldn't find a free slot in the coming days. Could you suggest another date?",
			snapshot.Date, snapshot.Time,
		)
		instruction = fmt.Sprintf(
			"The requested slot %s %s is taken and no alternative was found within the booking window. Apologize and ask the client for another date.",
			snapshot.Date, snapshot.Time,
		)
	}
	return c.polish(ctx, convCtx, instruction, fallback)
}

// Confirm asks the client to approve the fully gathered booking data.
func (c *Composer) Confirm(ctx context.Context, convCtx *Context, snapshot *messages.Snapshot, serviceName string) string {
	fallback := fmt.Sprintf(
		"Perfect, %s! To confirm: %s on %s at %s, document %s %s. Shall I book it?",
		snapshot.FullName, serviceName, snapshot.Date, snapshot.Time,
		snapshot.DocumentType, snapshot.DocumentNumber,
	)
	instruction := fmt.Sprintf(
		"Summarize the pending booking (%s on %s at %s for %s) and ask the client to confirm before booking.",
		serviceName, snapshot.Date, snapshot.Time, snapshot.FullName,
	)
	return c.polish(ctx, convCtx, instruction, fallback)
}

// Booked announces a created appointment.
func (c *Composer) Booked(ctx context.Context, convCtx *Context, appt *schedule.Appointment, serviceName string) string {
	fallback := fmt.Sprintf(
		"All set! Your %s appointment is booked for %s from %s to %s. See you then!",
		serviceName, appt.Date, appt.StartTime, appt.EndTime,
	)
	instruction := fmt.Sprintf(
		"Confirm enthusiastically that the %s appointment is booked for %s from %s to %s.",
		serviceName, appt.Date, appt.StartTime, appt.EndTime,
	)
	return c.polish(ctx, convCtx, instruction, fallback)
}

// CancelAck acknowledges a cancellation request, citing the tenant's notice
// policy, and asks which appointment when the snapshot doesn't identify one.
func (c *Composer) CancelAck(ctx context.Context, convCtx *Context, snapshot *messages.Snapshot) string {
	notice := convCtx.Tenant.Policies.MinCancelNoticeHours
	var fallback, instruction string
	if snapshot.Date != "" && snapshot.Time != "" {
		fallback = fmt.Sprintf(
			"Got it — I've noted your request to cancel the appointment on %s at %s. Please remember we ask for at least %d hours' notice.",
			snapshot.Date, snapshot.Time, notice,
		)
		instruction = fmt.Sprintf(
			"Acknowledge the cancellation of the appointment on %s at %s, mentioning the %d-hour notice policy.",
			snapshot.Date, snapshot.Time, notice,
		)
	} else {
		fallback = fmt.Sprintf(
			"I can help with that. Which appointment would you like to cancel? Note that we ask for at least %d hours' notice.",
			notice,
		)
		instruction = fmt.Sprintf(
			"The client wants to cancel but didn't say which appointment. Ask for the date and time, mentioning the %d-hour notice policy.",
			notice,
		)
	}
	return c.polish(ctx, convCtx, instruction, fallback)
}

// Generic answers an inform/other message conversationally, grounded on the
// tenant profile.
func (c *Composer) Generic(ctx context.Context, convCtx *Context, text string) string {
	names := make([]string, 0, len(convCtx.Services))
	for _, svc := range convCtx.Services {
		names = append(names, svc.Name)
	}
	fallback := fmt.Sprintf(
		"We offer: %s. Let me know if you'd like to book an appointment!",
		strings.Join(names, ", "),
	)
	instruction := fmt.Sprintf(
		"Answer the client's message %q helpfully on behalf of %s. Available services: %s. Keep it brief and offer to book.",
		text, convCtx.Tenant.Name, strings.Join(names, ", "),
	)
	return c.polish(ctx, convCtx, instruction, fallback)
}

func (c *Composer) polish(ctx context.Context, convCtx *Context, instruction, fallback string) string {
	if c.oracle == nil {
		return fallback
	}
	text, err := c.oracle.Reply(ctx, ReplyRequest{
		Transcript:  convCtx.Transcript,
		Instruction: instruction,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			c.logger.Warn("reply generation failed, using fallback", "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(text)
}

// humanJoin renders a list as "a, b and c".
func humanJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
