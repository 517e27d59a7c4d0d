package lesson

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Audience is one of the four fixed class groups a lesson can target.
type Audience string

const (
	Primary          Audience = "Primary (Children)"
	Youth            Audience = "Youth (Teens)"
	GospelDoctrine   Audience = "Gospel Doctrine (Adults)"
	GospelEssentials Audience = "Gospel Essentials (New Members)"
)

// Audiences lists every audience in display order.
var Audiences = []Audience{Primary, Youth, GospelDoctrine, GospelEssentials}

var ErrUnknownAudience = errors.New("unknown audience")

var audienceKeys = map[Audience]string{
	Primary:          "primary",
	Youth:            "youth",
	GospelDoctrine:   "gospel-doctrine",
	GospelEssentials: "gospel-essentials",
}

// Key is the stable identifier used in forms, flags and the catalog.
func (a Audience) Key() string {
	return audienceKeys[a]
}

// Label is the short name without the parenthesised group, e.g. "Youth".
func (a Audience) Label() string {
	s := string(a)
	if i := strings.Index(s, " ("); i > 0 {
		return s[:i]
	}
	return s
}

func (a Audience) Valid() bool {
	_, ok := audienceKeys[a]
	return ok
}

// ParseAudience accepts a key, the full display value or the short label.
func ParseAudience(s string) (Audience, error) {
	s = strings.TrimSpace(s)
	for _, a := range Audiences {
		if strings.EqualFold(s, a.Key()) || strings.EqualFold(s, string(a)) || strings.EqualFold(s, a.Label()) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAudience, s)
}

// Slide is a single generated slide. Only ScriptureReference and
// DiscussionQuestion may be empty.
type Slide struct {
	Title              string   `json:"title"`
	Bullets            []string `json:"bullets"`
	ScriptureReference string   `json:"scriptureReference,omitempty"`
	DiscussionQuestion string   `json:"discussionQuestion,omitempty"`
	ImageKeyword       string   `json:"imageKeyword"`
	SpeakerNotes       string   `json:"speakerNotes"`
}

// Source is a grounding citation returned by the lesson search.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// LessonPlan is the finished result of one generation run.
type LessonPlan struct {
	Topic    string   `json:"topic"`
	Date     string   `json:"date"`
	Audience Audience `json:"audience"`
	Slides   []Slide  `json:"slides"`
	Sources  []Source `json:"sources"`
	Context  string   `json:"context,omitempty"`
}

const (
	MinSlides = 5
	MaxSlides = 8
)

// Validate reports structural problems with a plan. The model contract asks
// for 5-8 slides but nothing downstream depends on it, so callers treat the
// result as warnings.
func Validate(p *LessonPlan) []string {
	var problems []string
	if n := len(p.Slides); n < MinSlides || n > MaxSlides {
		problems = append(problems, fmt.Sprintf("expected %d-%d slides, got %d", MinSlides, MaxSlides, n))
	}
	for i, s := range p.Slides {
		if strings.TrimSpace(s.Title) == "" {
			problems = append(problems, fmt.Sprintf("slide %d has no title", i+1))
		}
		if strings.TrimSpace(s.ImageKeyword) == "" {
			problems = append(problems, fmt.Sprintf("slide %d has no image keyword", i+1))
		}
	}
	return problems
}

const longDate = "Monday, January 2, 2006"

// FormatDate renders a date the way lessons are looked up, e.g.
// "Sunday, October 18, 2026".
func FormatDate(t time.Time) string {
	return t.Format(longDate)
}

// UpcomingSundays returns count Sundays starting with today when today is a
// Sunday, otherwise with the next one. A negative count yields none.
func UpcomingSundays(now time.Time, count int) []time.Time {
	count = max(count, 0)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if wd := start.Weekday(); wd != time.Sunday {
		start = start.AddDate(0, 0, 7-int(wd))
	}
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, start.AddDate(0, 0, 7*i))
	}
	return dates
}
