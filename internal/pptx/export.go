package pptx

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnemet/LessonForge/internal/images"
	"github.com/gnemet/LessonForge/internal/lesson"
)

// ImageSource resolves a slide keyword to background image bytes.
type ImageSource interface {
	Fetch(ctx context.Context, keyword string) (*images.Image, error)
}

const (
	colorWhite     = "FFFFFF"
	colorGold      = "FFD700"
	colorSidebar   = "1E3A8A"
	colorSidebarLn = "60A5FA"
	colorLabel     = "BFDBFE"
	colorLink      = "60A5FA"
	colorSourcesBg = "111827"
	fontFace       = "Arial"
)

// ExportLesson renders plan as a PPTX package: one slide per lesson slide,
// followed by a sources slide when the plan has citations. Every background
// image must download; any failure aborts the export with no output.
func ExportLesson(ctx context.Context, plan *lesson.LessonPlan, src ImageSource) ([]byte, string, error) {
	pres, err := BuildLesson(ctx, plan, src)
	if err != nil {
		return nil, "", err
	}
	data, err := pres.Bytes()
	if err != nil {
		return nil, "", err
	}
	return data, FileName(plan.Topic), nil
}

func BuildLesson(ctx context.Context, plan *lesson.LessonPlan, src ImageSource) (*Presentation, error) {
	if plan == nil || len(plan.Slides) == 0 {
		return nil, fmt.Errorf("lesson plan has no slides")
	}

	pres := New(plan.Topic)
	pres.Subject = "Come Follow Me - " + string(plan.Audience)
	for i, s := range plan.Slides {
		bg, err := src.Fetch(ctx, s.ImageKeyword)
		if err != nil {
			return nil, fmt.Errorf("slide %d background: %w", i+1, err)
		}
		if err := addLessonSlide(pres, s, bg); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
	}
	if len(plan.Sources) > 0 {
		addSourcesSlide(pres, plan.Sources)
	}
	return pres, nil
}

func addLessonSlide(pres *Presentation, s lesson.Slide, bg *images.Image) error {
	slide := pres.AddSlide()
	if err := slide.SetBackgroundImage(bg.Data, bg.ContentType); err != nil {
		return err
	}

	// Dark overlay for white text legibility.
	slide.AddRect(Rect{Box: Box{W: SlideWidth, H: SlideHeight}, Fill: "000000", Alpha: 60})

	slide.AddText(TextBox{
		Box: Box{X: Inch(0.5), Y: Inch(0.5), W: SlideWidth * 90 / 100, H: Inch(1.5)},
		Paragraphs: []Paragraph{{Runs: []Run{{
			Text: s.Title, Size: 36, Bold: true, Color: colorWhite, Font: fontFace, Shadow: true,
		}}}},
	})

	bullets := make([]Paragraph, 0, len(s.Bullets))
	for _, b := range s.Bullets {
		bullets = append(bullets, Paragraph{
			Bullet:      true,
			SpaceBefore: 10,
			Runs:        []Run{{Text: b, Size: 20, Color: colorWhite, Font: fontFace}},
		})
	}
	slide.AddText(TextBox{
		Box:        Box{X: Inch(0.5), Y: Inch(2.0), W: SlideWidth * 85 / 100, H: Inch(4.0)},
		Paragraphs: bullets,
		Anchor:     "t",
	})

	if s.ScriptureReference != "" {
		slide.AddText(TextBox{
			Box: Box{X: Inch(0.5), Y: Inch(6.2), W: SlideWidth * 90 / 100, H: Inch(0.6)},
			Paragraphs: []Paragraph{{Runs: []Run{{
				Text: "📖 " + s.ScriptureReference, Size: 14, Italic: true, Color: colorGold, Font: fontFace,
			}}}},
		})
	}

	if s.DiscussionQuestion != "" {
		slide.AddRect(Rect{
			Box:  Box{X: Inch(9.5), Y: Inch(2.0), W: Inch(3.5), H: Inch(4.0)},
			Fill: colorSidebar, Alpha: 80,
			Line: colorSidebarLn, LineWidth: 1,
		})
		slide.AddText(TextBox{
			Box:        Box{X: Inch(9.7), Y: Inch(2.2), W: Inch(3.1), H: Inch(0.3)},
			Paragraphs: []Paragraph{{Runs: []Run{{Text: "KEY QUESTION", Size: 10, Bold: true, Color: colorLabel}}}},
		})
		slide.AddText(TextBox{
			Box:        Box{X: Inch(9.7), Y: Inch(2.6), W: Inch(3.1), H: Inch(3.0)},
			Paragraphs: []Paragraph{{Runs: []Run{{Text: s.DiscussionQuestion, Size: 16, Bold: true, Color: colorWhite}}}},
			Anchor:     "t",
		})
	}

	slide.AddNotes(s.SpeakerNotes)
	return nil
}

func addSourcesSlide(pres *Presentation, sources []lesson.Source) {
	slide := pres.AddSlide()
	slide.SetBackgroundColor(colorSourcesBg)

	slide.AddText(TextBox{
		Box:        Box{X: Inch(0.5), Y: Inch(0.5), W: SlideWidth * 90 / 100, H: Inch(1.0)},
		Paragraphs: []Paragraph{{Runs: []Run{{Text: "Sources", Size: 32, Bold: true, Color: colorWhite, Font: fontFace}}}},
	})

	items := make([]Paragraph, 0, len(sources))
	for _, src := range sources {
		items = append(items, Paragraph{
			SpaceBefore: 10,
			Runs: []Run{{
				Text: src.Title + ": " + src.URI, Size: 14, Color: colorLink, Font: fontFace, Link: src.URI,
			}},
		})
	}
	slide.AddText(TextBox{
		Box:        Box{X: Inch(0.5), Y: Inch(1.5), W: SlideWidth * 90 / 100, H: Inch(5.0)},
		Paragraphs: items,
		Anchor:     "t",
	})
}

// FileName is the download name for a lesson deck.
func FileName(topic string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(topic))
	if clean == "" {
		clean = "Untitled"
	}
	return "Lesson - " + clean + ".pptx"
}
