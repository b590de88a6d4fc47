package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/z-chat/backend/internal/model/catalog"
	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

var (
	ErrEmptyInput   = errors.New("message content is required")
	ErrUnknownModel = errors.New("unknown model")
)

// TranscriptStore is the slice of the session service a conversation turn needs.
type TranscriptStore interface {
	BeginTurn(ctx context.Context, sessionID string) (func(), error)
	Append(ctx context.Context, sessionID string, role chat.Role, content string) error
	Snapshot(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Params carries the per-turn settings chosen in the settings panel.
// Zero values select the defaults.
type Params struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Service runs conversation turns against the configured chat model.
type Service struct {
	chatModel          model.BaseChatModel
	models             catalog.Store
	transcripts        TranscriptStore
	defaultTemperature float64
}

// NewService creates a new AI service instance.
func NewService(chatModel model.BaseChatModel, models catalog.Store, transcripts TranscriptStore, defaultTemperature float64) *Service {
	return &Service{
		chatModel:          chatModel,
		models:             models,
		transcripts:        transcripts,
		defaultTemperature: defaultTemperature,
	}
}

// ResolveParams fills defaults and validates model and temperature.
func (s *Service) ResolveParams(p Params) (string, float64, error) {
	modelID := strings.TrimSpace(p.Model)
	if modelID == "" {
		modelID = s.models.Default().ID
	} else if _, ok := s.models.FindByID(modelID); !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	temperature := s.defaultTemperature
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	if math.IsNaN(temperature) || temperature < 0 || temperature > 1 {
		return "", 0, fmt.Errorf("%w: got %v", ErrInvalidTemperature, temperature)
	}
	return modelID, temperature, nil
}

// GenerateResponse runs one completion over transcript.
func (s *Service) GenerateResponse(ctx context.Context, sessionID string, transcript []chat.Message, modelID string, temperature float64) (chat.Message, error) {
	response, err := s.chatModel.Generate(ctx, toSchema(transcript),
		model.WithModel(modelID),
		model.WithTemperature(float32(temperature)),
		WithExactTemperature(temperature),
	)
	if err != nil {
		return chat.Message{}, err
	}

	log.Printf("[ai] generated response for session=%s, model=%s, length=%d", sessionID, modelID, len(response.Content))
	return chat.AssistantMessage(response.Content), nil
}

// Converse records userInput, asks the model for a reply and records it.
// When the completion fails the user turn stays and no assistant turn is
// appended.
func (s *Service) Converse(ctx context.Context, sessionID, userInput string, p Params) (chat.Message, error) {
	if strings.TrimSpace(userInput) == "" {
		return chat.Message{}, ErrEmptyInput
	}
	modelID, temperature, err := s.ResolveParams(p)
	if err != nil {
		return chat.Message{}, err
	}

	endTurn, err := s.transcripts.BeginTurn(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}
	defer endTurn()

	if err := s.transcripts.Append(ctx, sessionID, chat.RoleUser, userInput); err != nil {
		return chat.Message{}, err
	}
	transcript, err := s.transcripts.Snapshot(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	reply, err := s.GenerateResponse(ctx, sessionID, transcript, modelID, temperature)
	if err != nil {
		log.Printf("[ai] completion failed for session=%s, model=%s: %v", sessionID, modelID, err)
		return chat.Message{}, fmt.Errorf("API error: %w", err)
	}

	if err := s.transcripts.Append(ctx, sessionID, reply.Role, reply.Content); err != nil {
		return chat.Message{}, err
	}
	return reply, nil
}
