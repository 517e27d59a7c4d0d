package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/gnemet/LessonForge/internal/logger"
)

// ErrMissingAPIKey is matched by every MissingKeyError. Callers show the
// concrete error text unchanged.
var ErrMissingAPIKey = errors.New("API key is missing")

var ErrUnknownProvider = errors.New("unknown AI provider")

type MissingKeyError struct {
	Provider string
	Env      string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("API Key is missing. Please add '%s' to your environment or .env file and restart the server.", e.Env)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingAPIKey
}

// LessonInfo is the result of the search step.
type LessonInfo struct {
	Title   string
	Context string
	Sources []lesson.Source
}

// Searcher resolves a Sunday to its lesson using a web-grounded model query.
type Searcher interface {
	IdentifyLesson(ctx context.Context, date string) (*LessonInfo, error)
}

// SlideGenerator turns lesson context into structured slides.
type SlideGenerator interface {
	GenerateSlides(ctx context.Context, lessonContext string, audience lesson.Audience) ([]lesson.Slide, error)
}

// Client pairs a Searcher with a SlideGenerator.
type Client struct {
	Searcher
	SlideGenerator

	name    string
	closers []func() error
}

// Name is the active slide provider.
func (c *Client) Name() string {
	return c.name
}

func (c *Client) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewClient builds the client for cfg.ActiveProvider. Search always uses
// Gemini, so every provider except mock needs the Gemini key.
func NewClient(ctx context.Context, cfg *config.AIConfig, log *logger.Logger) (*Client, error) {
	if cfg.ActiveProvider == "mock" {
		m := NewMock()
		return &Client{Searcher: m, SlideGenerator: m, name: "mock"}, nil
	}

	gemini := cfg.Provider("gemini")
	if gemini.Key == "" {
		return nil, &MissingKeyError{Provider: "gemini", Env: "GEMINI_KEY"}
	}

	searcher, err := NewGeminiSearcher(ctx, gemini, cfg.SearchModel)
	if err != nil {
		return nil, err
	}
	c := &Client{Searcher: searcher, name: cfg.ActiveProvider}

	switch cfg.ActiveProvider {
	case "gemini":
		slides, err := NewGeminiSlides(ctx, gemini)
		if err != nil {
			return nil, err
		}
		c.SlideGenerator = slides
		c.closers = append(c.closers, slides.Close)
	case "openai":
		settings := cfg.Provider("openai")
		if settings.Key == "" {
			return nil, &MissingKeyError{Provider: "openai", Env: "OPENAI_API_KEY"}
		}
		c.SlideGenerator = NewOpenAISlides(settings)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.ActiveProvider)
	}

	log.Info("AI client ready", "provider", c.name, "search_model", cfg.SearchModel)
	return c, nil
}

// Unavailable returns a client that fails every call with err and never
// touches the network. The server installs it when configuration is missing
// so the problem is shown to the user on their first generation attempt.
func Unavailable(err error) *Client {
	u := unavailable{err: err}
	return &Client{Searcher: u, SlideGenerator: u, name: "unavailable"}
}

type unavailable struct {
	err error
}

func (u unavailable) IdentifyLesson(context.Context, string) (*LessonInfo, error) {
	return nil, u.err
}

func (u unavailable) GenerateSlides(context.Context, string, lesson.Audience) ([]lesson.Slide, error) {
	return nil, u.err
}
