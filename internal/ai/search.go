package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/lesson"
	"google.golang.org/genai"
)

// GeminiSearcher identifies lessons with Gemini and Google Search grounding.
// The grounding tool is only exposed by the google.golang.org/genai SDK.
type GeminiSearcher struct {
	client    *genai.Client
	modelName string
}

// NewGeminiSearcher uses settings.Key, and settings.Endpoint when set, with
// modelName for the grounded query.
func NewGeminiSearcher(ctx context.Context, settings config.ProviderSettings, modelName string) (*GeminiSearcher, error) {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  settings.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if settings.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: settings.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini search client: %w", err)
	}
	return &GeminiSearcher{client: client, modelName: modelName}, nil
}

func (s *GeminiSearcher) IdentifyLesson(ctx context.Context, date string) (*LessonInfo, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	res, err := s.client.Models.GenerateContent(ctx, s.modelName, genai.Text(IdentifyPrompt(date)), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini grounded search: %w", err)
	}

	var sources []lesson.Source
	if len(res.Candidates) > 0 {
		sources = sourcesFromGrounding(res.Candidates[0].GroundingMetadata)
	}

	return &LessonInfo{
		Title:   fmt.Sprintf("Lesson for %s", date),
		Context: res.Text(),
		Sources: sources,
	}, nil
}

// sourcesFromGrounding keeps web chunks that carry both a title and a URI,
// in response order, without duplicates.
func sourcesFromGrounding(md *genai.GroundingMetadata) []lesson.Source {
	if md == nil {
		return nil
	}
	seen := make(map[string]bool)
	var sources []lesson.Source
	for _, chunk := range md.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		uri := strings.TrimSpace(chunk.Web.URI)
		title := strings.TrimSpace(chunk.Web.Title)
		if uri == "" || title == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		sources = append(sources, lesson.Source{Title: title, URI: uri})
	}
	return sources
}
