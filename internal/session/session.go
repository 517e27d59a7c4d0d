package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gnemet/LessonForge/internal/lesson"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusIdentifying Status = "identifying-lesson"
	StatusGenerating  Status = "generating-slides"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
)

// InProgress reports whether a pipeline run owns the session.
func (s Status) InProgress() bool {
	return s == StatusIdentifying || s == StatusGenerating
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotPresenting     = errors.New("no lesson is being presented")
	ErrExportInProgress  = errors.New("an export is already running")
)

// Session is the state of one browser session: the generation status and,
// once complete, the lesson being presented.
type Session struct {
	ID string

	mu          sync.Mutex
	status      Status
	message     string
	errMsg      string
	plan        *lesson.LessonPlan
	deck        *Deck
	showSources bool
	exporting   bool
	lastSeen    time.Time
}

func New(id string) *Session {
	return &Session{ID: id, status: StatusIdle, lastSeen: time.Now()}
}

// View is a consistent copy of the session for rendering.
type View struct {
	ID          string
	Status      Status
	Message     string
	Error       string
	Plan        *lesson.LessonPlan
	Index       int
	Count       int
	Current     *lesson.Slide
	ShowSources bool
	Exporting   bool
}

func (v View) HasPrev() bool { return v.Plan != nil && v.Index > 0 }
func (v View) HasNext() bool { return v.Plan != nil && v.Index < v.Count-1 }

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:          s.ID,
		Status:      s.status,
		Message:     s.message,
		Error:       s.errMsg,
		Plan:        s.plan,
		ShowSources: s.showSources,
		Exporting:   s.exporting,
	}
	if s.plan != nil && s.deck != nil {
		v.Index = s.deck.Index()
		v.Count = s.deck.Count()
		v.Current = &s.plan.Slides[v.Index]
	}
	return v
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) transition(from []Status, to Status) error {
	for _, f := range from {
		if s.status == f {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
}

// Begin claims the session for a new generation run.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition([]Status{StatusIdle}, StatusIdentifying); err != nil {
		return err
	}
	s.message = ""
	s.errMsg = ""
	return nil
}

// Identifying sets the status line for the search step.
func (s *Session) Identifying(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusIdentifying {
		return fmt.Errorf("%w: %s is not %s", ErrInvalidTransition, s.status, StatusIdentifying)
	}
	s.message = message
	return nil
}

func (s *Session) Generating(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition([]Status{StatusIdentifying}, StatusGenerating); err != nil {
		return err
	}
	s.message = message
	return nil
}

func (s *Session) Complete(plan *lesson.LessonPlan) error {
	if plan == nil || len(plan.Slides) == 0 {
		return fmt.Errorf("%w: lesson plan has no slides", ErrInvalidTransition)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition([]Status{StatusGenerating}, StatusComplete); err != nil {
		return err
	}
	s.plan = plan
	s.deck = NewDeck(len(plan.Slides))
	s.showSources = false
	s.message = ""
	return nil
}

// Fail records a failed run. message is what the user sees.
func (s *Session) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition([]Status{StatusIdentifying, StatusGenerating}, StatusError); err != nil {
		return err
	}
	s.errMsg = message
	s.message = ""
	return nil
}

// Reset returns to idle and drops the lesson plan. It is a no-op when idle and
// refused while a run is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusIdle {
		return nil
	}
	if err := s.transition([]Status{StatusComplete, StatusError}, StatusIdle); err != nil {
		return err
	}
	s.plan = nil
	s.deck = nil
	s.showSources = false
	s.exporting = false
	s.message = ""
	s.errMsg = ""
	return nil
}

func (s *Session) presenting() error {
	if s.status != StatusComplete || s.deck == nil {
		return ErrNotPresenting
	}
	return nil
}

func (s *Session) Next() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return false, err
	}
	return s.deck.Next(), nil
}

func (s *Session) Prev() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return false, err
	}
	return s.deck.Prev(), nil
}

func (s *Session) GoTo(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return false, err
	}
	return s.deck.GoTo(index), nil
}

// HandleKey applies a keyboard event. While the sources overlay is open only
// Escape does anything.
func (s *Session) HandleKey(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return false, err
	}
	if s.showSources {
		if key == "Escape" {
			s.showSources = false
			return true, nil
		}
		return false, nil
	}
	switch key {
	case "ArrowRight", " ", "Space", "Spacebar":
		return s.deck.Next(), nil
	case "ArrowLeft":
		return s.deck.Prev(), nil
	}
	return false, nil
}

// SetSourcesOpen shows or hides the citation overlay. Opening is a no-op for
// lessons without sources.
func (s *Session) SetSourcesOpen(open bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return false, err
	}
	if open && len(s.plan.Sources) == 0 {
		return false, nil
	}
	changed := s.showSources != open
	s.showSources = open
	return changed, nil
}

// BeginExport marks an export as running and returns the plan to export.
// Call EndExport when done.
func (s *Session) BeginExport() (*lesson.LessonPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.presenting(); err != nil {
		return nil, err
	}
	if s.exporting {
		return nil, ErrExportInProgress
	}
	s.exporting = true
	return s.plan, nil
}

func (s *Session) EndExport() {
	s.mu.Lock()
	s.exporting = false
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() (time.Time, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.status
}
