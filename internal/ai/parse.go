package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gnemet/LessonForge/internal/lesson"
)

// ParseError means the model answered but the payload was not usable slides.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse generated slides: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNoSlides = errors.New("response contained no slides")

// ParseSlides accepts a bare JSON array or a {"slides": [...]} object,
// optionally wrapped in a markdown code fence.
func ParseSlides(raw string) ([]lesson.Slide, error) {
	body := stripFence(raw)
	if body == "" {
		return nil, &ParseError{Raw: raw, Err: errNoSlides}
	}

	var slides []lesson.Slide
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &slides); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	case '{':
		var env struct {
			Slides []lesson.Slide `json:"slides"`
		}
		if err := json.Unmarshal([]byte(body), &env); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		slides = env.Slides
	default:
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("unexpected leading character %q", body[0])}
	}

	if len(slides) == 0 {
		return nil, &ParseError{Raw: raw, Err: errNoSlides}
	}
	for i := range slides {
		slides[i].Bullets = compact(slides[i].Bullets)
	}
	return slides, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func compact(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return out
}
