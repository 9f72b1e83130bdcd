package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

func TestGateSkipsFirstContact(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: func(ClassifyRequest) (Classification, error) {
			t.Fatal("oracle must not be called for a first contact")
			return Classification{}, nil
		},
	}
	gate := NewGate(oracle, logging.New("error"))

	got := gate.Evaluate(context.Background(), &Context{}, "Hola")

	assert.Equal(t, messages.IntentOther, got.Intent)
	assert.Zero(t, got.Confidence)
}

func TestGateClassifiesWithHistory(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: func(req ClassifyRequest) (Classification, error) {
			assert.Equal(t, "quiero una cita", req.Message)
			assert.Len(t, req.Transcript, 2)
			return Classification{Intent: messages.IntentSchedule, Confidence: 0.92}, nil
		},
	}
	gate := NewGate(oracle, logging.New("error"))
	convCtx := &Context{
		Turns: []messages.Turn{{Text: "hola"}},
		Transcript: []ChatMessage{
			{Role: ChatRoleUser, Content: "hola"},
			{Role: ChatRoleAssistant, Content: "hi!"},
		},
	}

	got := gate.Evaluate(context.Background(), convCtx, "quiero una cita")

	assert.Equal(t, messages.IntentSchedule, got.Intent)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
}

func TestGateDegradesOnOracleFailure(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: func(ClassifyRequest) (Classification, error) {
			return Classification{}, errors.New("timeout")
		},
	}
	gate := NewGate(oracle, logging.New("error"))
	convCtx := &Context{Turns: []messages.Turn{{Text: "hola"}}}

	got := gate.Evaluate(context.Background(), convCtx, "quiero una cita")

	assert.Equal(t, messages.IntentOther, got.Intent)
	assert.Zero(t, got.Confidence)
}

func TestGateRejectsUnknownIntent(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: func(ClassifyRequest) (Classification, error) {
			return Classification{Intent: "book-me-now", Confidence: 0.99}, nil
		},
	}
	gate := NewGate(oracle, logging.New("error"))
	convCtx := &Context{Turns: []messages.Turn{{Text: "hola"}}}

	got := gate.Evaluate(context.Background(), convCtx, "quiero una cita")

	assert.Equal(t, messages.IntentOther, got.Intent)
	assert.Zero(t, got.Confidence)
}
