package ai

import (
	"context"
	"fmt"
	"math"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

var _ model.BaseChatModel = (*ChatModel)(nil)

// ChatModel exposes a Completer through eino's chat model interface. Model
// and temperature come from model.WithModel / model.WithTemperature and fall
// back to the values given at construction.
type ChatModel struct {
	completer          Completer
	defaultModel       string
	defaultTemperature float64
}

type openRouterOptions struct {
	Temperature *float64
}

// WithExactTemperature passes the sampling temperature at full precision.
// It takes precedence over model.WithTemperature, whose float32 would
// otherwise be widened back to a decimal approximation.
func WithExactTemperature(temperature float64) model.Option {
	return model.WrapImplSpecificOptFn(func(o *openRouterOptions) {
		o.Temperature = &temperature
	})
}

// NewChatModel wraps completer.
func NewChatModel(completer Completer, defaultModel string, defaultTemperature float64) *ChatModel {
	return &ChatModel{
		completer:          completer,
		defaultModel:       defaultModel,
		defaultTemperature: defaultTemperature,
	}
}

// Generate runs one completion over input and returns the assistant turn.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelID := m.defaultModel
	options := model.GetCommonOptions(&model.Options{Model: &modelID}, opts...)
	exact := model.GetImplSpecificOptions(&openRouterOptions{}, opts...)

	messages, err := toTranscript(input)
	if err != nil {
		return nil, err
	}

	sampling := m.defaultTemperature
	switch {
	case exact.Temperature != nil:
		sampling = *exact.Temperature
	case options.Temperature != nil:
		sampling = widen(*options.Temperature)
	}

	content, err := m.completer.Complete(ctx, messages, derefString(options.Model, m.defaultModel), sampling)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream performs a regular Generate and delivers the result as a single
// chunk; the upstream call is never streamed.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toTranscript(input []*schema.Message) ([]chat.Message, error) {
	messages := make([]chat.Message, 0, len(input))
	for i, msg := range input {
		if msg == nil {
			continue
		}
		role := chat.Role(msg.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("message %d: %w: %q", i, chat.ErrInvalidRole, msg.Role)
		}
		messages = append(messages, chat.Message{Role: role, Content: msg.Content})
	}
	return messages, nil
}

func toSchema(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, &schema.Message{Role: schema.RoleType(msg.Role), Content: msg.Content})
	}
	return out
}

func derefString(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

// widen turns a float32 option back into a short decimal so 0.7 goes on the
// wire as 0.7, not 0.699999988.
func widen(t float32) float64 {
	return math.Round(float64(t)*1e6) / 1e6
}
