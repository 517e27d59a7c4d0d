package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/gnemet/LessonForge/internal/logger"
	"google.golang.org/genai"
)

func TestNewClientMissingKey(t *testing.T) {
	cfg := &config.AIConfig{ActiveProvider: "gemini"}
	_, err := NewClient(context.Background(), cfg, logger.Nop())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_KEY") {
		t.Fatalf("message should name the variable, got %q", err.Error())
	}
}

func TestNewClientMockNeedsNoKey(t *testing.T) {
	c, err := NewClient(context.Background(), &config.AIConfig{ActiveProvider: "mock"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Name() != "mock" {
		t.Fatalf("name = %q", c.Name())
	}
}

func TestUnavailableReturnsError(t *testing.T) {
	want := &MissingKeyError{Provider: "gemini", Env: "GEMINI_KEY"}
	c := Unavailable(want)
	if _, err := c.IdentifyLesson(context.Background(), "Sunday"); err != want {
		t.Fatalf("IdentifyLesson err = %v", err)
	}
	if _, err := c.GenerateSlides(context.Background(), "ctx", lesson.Youth); err != want {
		t.Fatalf("GenerateSlides err = %v", err)
	}
}

func TestParseSlides(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[{"title":"A","bullets":["Why?"],"imageKeyword":"k","speakerNotes":"n"}]`, 1},
		{"envelope", `{"slides":[{"title":"A","bullets":[],"imageKeyword":"k","speakerNotes":"n"},{"title":"B","bullets":[],"imageKeyword":"k","speakerNotes":"n"}]}`, 2},
		{"fenced", "```json\n[{\"title\":\"A\",\"bullets\":[\"  \",\"How?\"],\"imageKeyword\":\"k\",\"speakerNotes\":\"n\"}]\n```", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slides, err := ParseSlides(tt.raw)
			if err != nil {
				t.Fatalf("ParseSlides: %v", err)
			}
			if len(slides) != tt.want {
				t.Fatalf("got %d slides, want %d", len(slides), tt.want)
			}
		})
	}

	slides, _ := ParseSlides("```json\n[{\"title\":\"A\",\"bullets\":[\"  \",\"How?\"],\"imageKeyword\":\"k\",\"speakerNotes\":\"n\"}]\n```")
	if len(slides[0].Bullets) != 1 || slides[0].Bullets[0] != "How?" {
		t.Fatalf("blank bullets should be dropped, got %q", slides[0].Bullets)
	}
}

func TestParseSlidesMalformed(t *testing.T) {
	for _, raw := range []string{"", "[]", "not json", `{"slides": "nope"}`, `[{"title": 3}]`} {
		_, err := ParseSlides(raw)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseSlides(%q): expected *ParseError, got %v", raw, err)
		}
	}
}

func TestSourcesFromGrounding(t *testing.T) {
	md := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{Title: "Come, Follow Me", URI: "https://example.org/cfm"}},
			{Web: &genai.GroundingChunkWeb{Title: "", URI: "https://example.org/untitled"}},
			{Web: &genai.GroundingChunkWeb{Title: "Duplicate", URI: "https://example.org/cfm"}},
			{},
			{Web: &genai.GroundingChunkWeb{Title: "Genesis 6", URI: "https://example.org/gen6"}},
		},
	}
	got := sourcesFromGrounding(md)
	want := []lesson.Source{
		{Title: "Come, Follow Me", URI: "https://example.org/cfm"},
		{Title: "Genesis 6", URI: "https://example.org/gen6"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source %d = %v, want %v", i, got[i], want[i])
		}
	}
	if sourcesFromGrounding(nil) != nil {
		t.Fatal("nil metadata should give no sources")
	}
}

func TestSlidesSystemInstruction(t *testing.T) {
	got := SlidesSystemInstruction(lesson.Primary)
	for _, want := range []string{"Audience Profile: Primary (Children)", "cute vector illustration", "digital art style", "cinematic oil painting", "Generate 5-8 slides"} {
		if !strings.Contains(got, want) {
			t.Errorf("system instruction missing %q", want)
		}
	}
	if !strings.Contains(IdentifyPrompt("Sunday, October 18, 2026"), "Sunday, October 18, 2026") {
		t.Error("identify prompt should carry the date")
	}
}

func TestMockRespectsContract(t *testing.T) {
	m := NewMock()
	for _, a := range lesson.Audiences {
		slides, err := m.GenerateSlides(context.Background(), "ctx", a)
		if err != nil {
			t.Fatalf("GenerateSlides(%q): %v", a, err)
		}
		if n := len(slides); n < lesson.MinSlides || n > lesson.MaxSlides {
			t.Errorf("%q: %d slides outside 5-8", a, n)
		}
	}

	slides, _ := m.GenerateSlides(context.Background(), "ctx", lesson.Primary)
	for _, s := range slides {
		if !strings.HasPrefix(s.ImageKeyword, "cute vector illustration") {
			t.Errorf("primary keyword %q lacks child style prefix", s.ImageKeyword)
		}
	}
}

func TestOpenAISlides(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content := `{"slides":[{"title":"Faith","bullets":["What is faith?"],"imageKeyword":"digital art style sunrise","speakerNotes":"Share a story."}]}`
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	o := NewOpenAISlides(config.ProviderSettings{Key: "sk-test", Endpoint: srv.URL + "/v1"})
	slides, err := o.GenerateSlides(context.Background(), "Moses 8", lesson.Youth)
	if err != nil {
		t.Fatalf("GenerateSlides: %v", err)
	}
	if len(slides) != 1 || slides[0].Title != "Faith" {
		t.Fatalf("unexpected slides %+v", slides)
	}
	if got.ResponseFormat.Type != "json_object" {
		t.Errorf("response format = %q", got.ResponseFormat.Type)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "Moses 8") {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGeminiSearcherGrounding(t *testing.T) {
	var got struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		Tools []map[string]json.RawMessage `json:"tools"`
	}
	var path, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "The Lord Will Provide. "}, {"text": "Genesis 6-11; Moses 8."}]},
				"finishReason": "STOP",
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://example.org/cfm", "title": "Come, Follow Me"}},
					{"web": {"uri": "https://example.org/cfm", "title": "Duplicate"}},
					{"web": {"uri": "", "title": "No link"}}
				]}
			}]
		}`))
	}))
	defer srv.Close()

	s, err := NewGeminiSearcher(context.Background(), config.ProviderSettings{Key: "test-key", Endpoint: srv.URL}, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("NewGeminiSearcher: %v", err)
	}
	info, err := s.IdentifyLesson(context.Background(), "Sunday, October 18, 2026")
	if err != nil {
		t.Fatalf("IdentifyLesson: %v", err)
	}

	if !strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent") {
		t.Errorf("request path = %q", path)
	}
	if key != "test-key" {
		t.Errorf("api key header = %q", key)
	}
	if len(got.Tools) != 1 || got.Tools[0]["googleSearch"] == nil {
		t.Errorf("request should enable the googleSearch tool, got %v", got.Tools)
	}
	if len(got.Contents) == 0 || len(got.Contents[0].Parts) == 0 || !strings.Contains(got.Contents[0].Parts[0].Text, "Sunday, October 18, 2026") {
		t.Errorf("prompt should carry the date: %+v", got.Contents)
	}

	if info.Title != "Lesson for Sunday, October 18, 2026" {
		t.Errorf("title = %q", info.Title)
	}
	if info.Context != "The Lord Will Provide. Genesis 6-11; Moses 8." {
		t.Errorf("context = %q", info.Context)
	}
	want := []lesson.Source{{Title: "Come, Follow Me", URI: "https://example.org/cfm"}}
	if len(info.Sources) != 1 || info.Sources[0] != want[0] {
		t.Errorf("sources = %v, want %v", info.Sources, want)
	}
}

func TestGeminiSearcherRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewGeminiSearcher(context.Background(), config.ProviderSettings{Key: "test-key", Endpoint: srv.URL}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.IdentifyLesson(context.Background(), "Sunday, October 18, 2026"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGeminiSlidesSchema(t *testing.T) {
	var got struct {
		GenerationConfig struct {
			ResponseMIMEType string `json:"responseMimeType"`
			ResponseSchema   struct {
				Items struct {
					Required   []string                   `json:"required"`
					Properties map[string]json.RawMessage `json:"properties"`
				} `json:"items"`
			} `json:"responseSchema"`
		} `json:"generationConfig"`
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		payload, _ := json.Marshal(`[{"title":"Noah","bullets":["Why build?"," "],"imageKeyword":"cute vector illustration ark","speakerNotes":"Read Genesis 6."}]`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":` + string(payload) + `}]},"finishReason":"STOP","index":0}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiSlides(context.Background(), config.ProviderSettings{Key: "test-key", Endpoint: srv.URL, Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("NewGeminiSlides: %v", err)
	}
	defer g.Close()

	slides, err := g.GenerateSlides(context.Background(), "Moses 8", lesson.Primary)
	if err != nil {
		t.Fatalf("GenerateSlides: %v", err)
	}
	if !strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent") {
		t.Errorf("request path = %q", path)
	}
	if len(slides) != 1 || slides[0].Title != "Noah" || len(slides[0].Bullets) != 1 {
		t.Fatalf("unexpected slides %+v", slides)
	}

	cfg := got.GenerationConfig
	if cfg.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q", cfg.ResponseMIMEType)
	}
	required := strings.Join(cfg.ResponseSchema.Items.Required, ",")
	if required != "title,bullets,imageKeyword,speakerNotes" {
		t.Errorf("required fields = %q", required)
	}
	for _, f := range []string{"scriptureReference", "discussionQuestion"} {
		if _, ok := cfg.ResponseSchema.Items.Properties[f]; !ok {
			t.Errorf("schema is missing optional field %q", f)
		}
	}
	if len(got.SystemInstruction.Parts) == 0 || !strings.Contains(got.SystemInstruction.Parts[0].Text, "cute vector illustration") {
		t.Errorf("system instruction should carry the audience image style")
	}
}
