package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/JaRodriguez97/back-adviser/internal/messages"
)

const classifyPrompt = `You classify chat messages for an appointment-booking assistant.
Options:
- schedule: book a new appointment
- modify: change an existing appointment
- cancel: cancel an appointment
- inform: ask for information (services, prices, hours)
- other: ambiguous or off-topic

Weigh the conversation context heavily: the message under analysis may be
short or ambiguous on its own.

Return ONLY a JSON object: {"intent": "<one of the five>", "confidence": <0..1>}`

const extractPrompt = `You maintain a partial record of booking data gathered across a conversation.

Update only the fields the new message clarifies or contradicts. If the
message does not mention a field, keep the previous value. Never clear
already-gathered data unless the new message explicitly contradicts it.

Return only the final merged JSON object.

Available services: %s

Fields to fill:
{
  "document_type": string (of the person to be attended),
  "document_number": string,
  "full_name": string,
  "date": "YYYY-MM-DD" (resolve natural expressions like "next wednesday" using today = %s),
  "service_id": string (match the client's words to an id from the list above),
  "time": "HH:MM" (only if inside the operating hours: %s),
  "ambiguous": true when the requested data is unclear,
  "confirmed": true only when the client explicitly confirms all gathered data
}

Already booked on the requested date (suggest times that avoid these): %s`

// GeminiOracle implements Oracle using Google's Gemini API with structured
// JSON output, mirroring the request/response contract of the classify and
// extract operations.
type GeminiOracle struct {
	client  *genai.Client
	modelID string
}

// NewGeminiOracle creates the oracle client.
func NewGeminiOracle(ctx context.Context, apiKey, modelID string) (*GeminiOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiOracle{client: client, modelID: modelID}, nil
}

// Close releases the underlying API client.
func (o *GeminiOracle) Close() error {
	return o.client.Close()
}

// Classify asks the model for the intent of the latest message given the
// recent transcript.
func (o *GeminiOracle) Classify(ctx context.Context, req ClassifyRequest) (Classification, error) {
	model := o.client.GenerativeModel(o.modelID)
	model.SetTemperature(0.1)
	model.SetTopK(1)
	model.SetTopP(1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"intent":     {Type: genai.TypeString},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"intent", "confidence"},
	}
	model.SystemInstruction = genai.NewUserContent(genai.Text(classifyPrompt))

	cs := model.StartChat()
	cs.History = toGenaiHistory(req.Transcript)

	resp, err := cs.SendMessage(ctx, genai.Text(
		"Classify the intent of the conversation given this latest message: "+req.Message,
	))
	if err != nil {
		return Classification{}, fmt.Errorf("conversation: gemini classify failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return Classification{}, err
	}

	var result Classification
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return Classification{}, fmt.Errorf("conversation: classify output unparseable: %w", err)
	}
	if !result.Intent.Valid() {
		return Classification{}, fmt.Errorf("conversation: classify returned unknown intent %q", result.Intent)
	}
	return result, nil
}

// Extract asks the model to update the slot-filling state from the latest
// message.
func (o *GeminiOracle) Extract(ctx context.Context, req ExtractRequest) (messages.Snapshot, error) {
	catalog, _ := json.Marshal(req.ServiceCatalog)
	hours, _ := json.Marshal(req.OperatingHours)

	booked := "none found for that date"
	if len(req.BookedForDate) > 0 {
		raw, _ := json.Marshal(req.BookedForDate)
		booked = string(raw)
	}

	model := o.client.GenerativeModel(o.modelID)
	model.SetTemperature(0.1)
	model.SetTopK(1)
	model.SetTopP(1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"document_type":   {Type: genai.TypeString},
			"document_number": {Type: genai.TypeString},
			"full_name":       {Type: genai.TypeString},
			"service_id":      {Type: genai.TypeString},
			"date":            {Type: genai.TypeString},
			"time":            {Type: genai.TypeString},
			"ambiguous":       {Type: genai.TypeBoolean},
			"confirmed":       {Type: genai.TypeBoolean},
		},
		Required: []string{"ambiguous", "confirmed"},
	}
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		fmt.Sprintf(extractPrompt, catalog, req.Today, hours, booked),
	))

	cs := model.StartChat()
	cs.History = toGenaiHistory(req.Transcript)

	previous, _ := json.Marshal(req.Previous)
	resp, err := cs.SendMessage(ctx, genai.Text(fmt.Sprintf(
		"Previous state: %s\nLatest message to analyze: %s", previous, req.Message,
	)))
	if err != nil {
		return messages.Snapshot{}, fmt.Errorf("conversation: gemini extract failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return messages.Snapshot{}, err
	}

	var snapshot messages.Snapshot
	if err := json.Unmarshal([]byte(stripFences(text)), &snapshot); err != nil {
		return messages.Snapshot{}, fmt.Errorf("conversation: extract output unparseable: %w", err)
	}
	return snapshot, nil
}

// Reply asks the model to phrase the outbound reply in the client's language.
func (o *GeminiOracle) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	model := o.client.GenerativeModel(o.modelID)
	model.SetTemperature(0.3)
	model.SetTopK(32)
	model.SetTopP(0.85)
	model.SetMaxOutputTokens(512)

	cs := model.StartChat()
	cs.History = toGenaiHistory(req.Transcript)

	resp, err := cs.SendMessage(ctx, genai.Text(req.Instruction))
	if err != nil {
		return "", fmt.Errorf("conversation: gemini reply failed: %w", err)
	}
	return responseText(resp)
}

func toGenaiHistory(transcript []ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(transcript))
	for _, msg := range transcript {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == ChatRoleSystem {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}
	return history
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("conversation: gemini returned empty content")
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// stripFences removes markdown code fences some models wrap JSON output in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
