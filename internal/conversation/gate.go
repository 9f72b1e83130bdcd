package conversation

import (
	"context"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Gate decides the intent of an incoming message before any expensive
// extraction or availability work runs. Classification failures never fail
// the turn: the gate degrades to IntentOther and lets the generic-reply path
// handle the message.
type Gate struct {
	oracle Oracle
	logger *logging.Logger
}

// NewGate creates an intent gate backed by the given oracle.
func NewGate(oracle Oracle, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{oracle: oracle, logger: logger}
}

// Evaluate classifies text against the conversation so far. The very first
// message from a client skips the oracle entirely: there is no history to
// reason over and the greeting path answers it regardless of phrasing.
func (g *Gate) Evaluate(ctx context.Context, convCtx *Context, text string) Classification {
	if convCtx.FirstContact() || g.oracle == nil {
		return Classification{Intent: messages.IntentOther, Confidence: 0}
	}

	result, err := g.oracle.Classify(ctx, ClassifyRequest{
		Message:    text,
		Transcript: convCtx.Transcript,
	})
	if err != nil {
		g.logger.Warn("intent classification failed, treating as other", "error", err)
		return Classification{Intent: messages.IntentOther, Confidence: 0}
	}
	if !result.Intent.Valid() {
		g.logger.Warn("oracle returned unknown intent", "intent", string(result.Intent))
		return Classification{Intent: messages.IntentOther, Confidence: 0}
	}
	return result
}
