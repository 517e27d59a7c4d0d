package ai

import (
	"context"
	"fmt"

	"github.com/gnemet/LessonForge/internal/catalog"
	"github.com/gnemet/LessonForge/internal/lesson"
)

// Mock returns canned lesson data without any network access.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) IdentifyLesson(ctx context.Context, date string) (*LessonInfo, error) {
	return &LessonInfo{
		Title: fmt.Sprintf("Lesson for %s", date),
		Context: "**Come, Follow Me** for the week including Sunday, " + date + ".\n\n" +
			"Lesson: *\"The Lord Will Provide\"*. Readings: Genesis 6-11; Moses 8.",
		Sources: []lesson.Source{
			{Title: "Come, Follow Me—For Home and Church", URI: "https://www.churchofjesuschrist.org/study/come-follow-me"},
			{Title: "Genesis 6", URI: "https://www.churchofjesuschrist.org/study/scriptures/ot/gen/6"},
		},
	}, nil
}

func (m *Mock) GenerateSlides(ctx context.Context, lessonContext string, audience lesson.Audience) ([]lesson.Slide, error) {
	entry, err := catalog.Lookup(audience)
	if err != nil {
		return nil, err
	}

	subjects := []struct {
		title, subject, scripture, question string
	}{
		{"Noah Builds the Ark", "Noah building a wooden ark", "Genesis 6:13-22", "Why did Noah obey even when others laughed?"},
		{"Two by Two", "animals walking into the ark", "Genesis 7:1-9", ""},
		{"Forty Days of Rain", "ark floating on stormy sea", "Genesis 7:11-12", "How does the Lord protect us today?"},
		{"The Dove Returns", "white dove carrying olive leaf", "Genesis 8:8-12", ""},
		{"The Rainbow Covenant", "bright rainbow over the mountains", "Genesis 9:12-17", "What promises has God made to you?"},
		{"Building Our Own Arks", "family praying together at home", "", "What can we do this week to stay safe spiritually?"},
	}

	slides := make([]lesson.Slide, 0, len(subjects))
	for _, s := range subjects {
		slides = append(slides, lesson.Slide{
			Title: s.title,
			Bullets: []string{
				fmt.Sprintf("What do you notice about %q?", s.title),
				"How would you have felt if you were there?",
			},
			ScriptureReference: s.scripture,
			DiscussionQuestion: s.question,
			ImageKeyword:       entry.ImageStyle + " " + s.subject,
			SpeakerNotes:       fmt.Sprintf("%s Invite a class member to read the verses aloud.", entry.Tone),
		})
	}
	return slides, nil
}
