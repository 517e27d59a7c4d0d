package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/lesson"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAISlides generates slides through the chat completions API in JSON
// object mode. JSON mode only allows objects, hence the {"slides": [...]} envelope.
type OpenAISlides struct {
	client   *openai.Client
	settings config.ProviderSettings
}

func NewOpenAISlides(settings config.ProviderSettings) *OpenAISlides {
	cfg := openai.DefaultConfig(settings.Key)
	if settings.Endpoint != "" {
		cfg.BaseURL = settings.Endpoint
	}
	if settings.Model == "" {
		settings.Model = openai.GPT4oMini
	}
	return &OpenAISlides{client: openai.NewClientWithConfig(cfg), settings: settings}
}

func (o *OpenAISlides) GenerateSlides(ctx context.Context, lessonContext string, audience lesson.Audience) ([]lesson.Slide, error) {
	req := openai.ChatCompletionRequest{
		Model: o.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SlidesSystemInstruction(audience) + "\n" + jsonEnvelopeInstruction()},
			{Role: openai.ChatMessageRoleUser, Content: SlidesUserPrompt(lessonContext)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: float32(o.settings.Temperature),
		MaxTokens:   o.settings.MaxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return ParseSlides(resp.Choices[0].Message.Content)
}
