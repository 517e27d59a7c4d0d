package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gnemet/LessonForge/internal/ai"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/gnemet/LessonForge/internal/logger"
)

// User-facing failure messages. Missing configuration is shown as-is instead.
const (
	MsgIdentifyFailed = "Failed to identify the lesson schedule. Please try again."
	MsgGenerateFailed = "Failed to generate slide content."
	MsgParseFailed    = "The generated slides could not be read. Please try again."
)

type Step string

const (
	StepIdentify Step = "identify-lesson"
	StepGenerate Step = "generate-slides"
)

// StepError hides the remote failure behind a generic message.
type StepError struct {
	Step    Step
	Message string
	Err     error
}

func (e *StepError) Error() string { return e.Message }

func (e *StepError) Unwrap() error { return e.Err }

// Provider is the pair of remote calls the pipeline sequences.
type Provider interface {
	IdentifyLesson(ctx context.Context, date string) (*ai.LessonInfo, error)
	GenerateSlides(ctx context.Context, lessonContext string, audience lesson.Audience) ([]lesson.Slide, error)
}

// Progress receives a status line before each step starts.
type Progress interface {
	Identifying(message string) error
	Generating(message string) error
}

type Service struct {
	provider Provider
	log      *logger.Logger
}

func NewService(provider Provider, log *logger.Logger) *Service {
	return &Service{provider: provider, log: log.With("component", "planner")}
}

// Generate identifies the lesson for date and builds its slides for audience.
// progress may be nil.
func (s *Service) Generate(ctx context.Context, date time.Time, audience lesson.Audience, progress Progress) (*lesson.LessonPlan, error) {
	if !audience.Valid() {
		return nil, fmt.Errorf("%w: %q", lesson.ErrUnknownAudience, audience)
	}
	dateStr := lesson.FormatDate(date)
	log := s.log.With("date", dateStr, "audience", audience.Key())

	if progress != nil {
		if err := progress.Identifying(fmt.Sprintf("Identifying lesson for %s...", dateStr)); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	info, err := s.provider.IdentifyLesson(ctx, dateStr)
	if err != nil {
		log.Error("Error identifying lesson", "error", err)
		return nil, stepError(StepIdentify, err)
	}
	log.Info("Lesson identified", "topic", info.Title, "sources", len(info.Sources), "took", time.Since(start).Round(time.Millisecond))

	if progress != nil {
		if err := progress.Generating(fmt.Sprintf("Creating %s slides for %q...", audience, info.Title)); err != nil {
			return nil, err
		}
	}

	start = time.Now()
	slides, err := s.provider.GenerateSlides(ctx, info.Context, audience)
	if err != nil {
		log.Error("Error generating slides", "error", err)
		return nil, stepError(StepGenerate, err)
	}

	plan := &lesson.LessonPlan{
		Topic:    info.Title,
		Date:     dateStr,
		Audience: audience,
		Slides:   slides,
		Sources:  info.Sources,
		Context:  info.Context,
	}
	for _, p := range lesson.Validate(plan) {
		log.Warn("Generated plan deviates from contract", "problem", p)
	}
	log.Info("Slides generated", "slides", len(slides), "took", time.Since(start).Round(time.Millisecond))

	return plan, nil
}

func stepError(step Step, err error) error {
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return err
	}
	var pe *ai.ParseError
	if errors.As(err, &pe) {
		return &StepError{Step: step, Message: MsgParseFailed, Err: err}
	}
	msg := MsgGenerateFailed
	if step == StepIdentify {
		msg = MsgIdentifyFailed
	}
	return &StepError{Step: step, Message: msg, Err: err}
}
