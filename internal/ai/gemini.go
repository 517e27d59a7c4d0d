package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSlides generates slides with a JSON response schema.
type GeminiSlides struct {
	client    *genai.Client
	modelName string
	settings  config.ProviderSettings
}

func NewGeminiSlides(ctx context.Context, settings config.ProviderSettings) (*GeminiSlides, error) {
	opts := []option.ClientOption{option.WithAPIKey(settings.Key)}
	if settings.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(settings.Endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	modelName := settings.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiSlides{client: client, modelName: modelName, settings: settings}, nil
}

func (g *GeminiSlides) Close() error {
	return g.client.Close()
}

func (g *GeminiSlides) GenerateSlides(ctx context.Context, lessonContext string, audience lesson.Audience) ([]lesson.Slide, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(SlidesSystemInstruction(audience)))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = slideSchema()
	if g.settings.Temperature > 0 {
		model.SetTemperature(float32(g.settings.Temperature))
	}
	if g.settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.settings.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(SlidesUserPrompt(lessonContext)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate slides: %w", err)
	}

	return ParseSlides(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func slideSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": str(""),
				"bullets": {
					Type:        genai.TypeArray,
					Items:       str(""),
					Description: slideFieldDescriptions["bullets"],
				},
				"scriptureReference": str(slideFieldDescriptions["scriptureReference"]),
				"discussionQuestion": str(slideFieldDescriptions["discussionQuestion"]),
				"imageKeyword":       str(slideFieldDescriptions["imageKeyword"]),
				"speakerNotes":       str(slideFieldDescriptions["speakerNotes"]),
			},
			Required: requiredSlideFields,
		},
	}
}
