package lesson

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseAudience(t *testing.T) {
	tests := []struct {
		in   string
		want Audience
	}{
		{"primary", Primary},
		{"Youth (Teens)", Youth},
		{"gospel doctrine", GospelDoctrine},
		{" GOSPEL-ESSENTIALS ", GospelEssentials},
	}
	for _, tt := range tests {
		got, err := ParseAudience(tt.in)
		if err != nil {
			t.Fatalf("ParseAudience(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseAudience(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseAudience("elders quorum"); !errors.Is(err, ErrUnknownAudience) {
		t.Fatalf("expected ErrUnknownAudience, got %v", err)
	}
}

func TestAudienceKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Audiences {
		if !a.Valid() {
			t.Fatalf("%q should be valid", a)
		}
		if seen[a.Key()] {
			t.Fatalf("duplicate key %q", a.Key())
		}
		seen[a.Key()] = true
	}
	if Audience("Relief Society").Valid() {
		t.Fatal("arbitrary audience must not be valid")
	}
}

func TestUpcomingSundays(t *testing.T) {
	// Wednesday
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	got := UpcomingSundays(now, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 dates, got %d", len(got))
	}
	want := []string{"2026-10-18", "2026-10-25", "2026-11-01", "2026-11-08"}
	for i, d := range got {
		if d.Weekday() != time.Sunday {
			t.Errorf("date %d is a %s", i, d.Weekday())
		}
		if d.Format("2006-01-02") != want[i] {
			t.Errorf("date %d = %s, want %s", i, d.Format("2006-01-02"), want[i])
		}
	}

	sunday := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	if first := UpcomingSundays(sunday, 1)[0]; first.Day() != 18 {
		t.Fatalf("a Sunday should start with itself, got %s", first)
	}

	for _, n := range []int{0, -3} {
		if got := UpcomingSundays(now, n); len(got) != 0 {
			t.Errorf("UpcomingSundays(now, %d) = %v, want none", n, got)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "Sunday, October 18, 2026" {
		t.Fatalf("FormatDate = %q", got)
	}
}

func TestValidate(t *testing.T) {
	plan := &LessonPlan{Slides: make([]Slide, 3)}
	problems := Validate(plan)
	if len(problems) == 0 || !strings.Contains(problems[0], "got 3") {
		t.Fatalf("expected slide count warning, got %v", problems)
	}

	plan.Slides = nil
	for i := 0; i < 6; i++ {
		plan.Slides = append(plan.Slides, Slide{Title: "t", ImageKeyword: "k"})
	}
	if problems := Validate(plan); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}
