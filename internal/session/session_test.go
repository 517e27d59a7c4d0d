package session

import (
	"errors"
	"testing"
	"time"

	"github.com/gnemet/LessonForge/internal/lesson"
)

func testPlan(slides, sources int) *lesson.LessonPlan {
	p := &lesson.LessonPlan{Topic: "Noah", Audience: lesson.Youth}
	for i := 0; i < slides; i++ {
		p.Slides = append(p.Slides, lesson.Slide{Title: "Slide", ImageKeyword: "ark", SpeakerNotes: "notes"})
	}
	for i := 0; i < sources; i++ {
		p.Sources = append(p.Sources, lesson.Source{Title: "Genesis", URI: "https://example.org"})
	}
	return p
}

func presenting(t *testing.T, slides, sources int) *Session {
	t.Helper()
	s := New("s1")
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := s.Generating("Creating slides"); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(testPlan(slides, sources)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLifecycle(t *testing.T) {
	s := New("s1")
	if s.Status() != StatusIdle {
		t.Fatalf("initial status %q", s.Status())
	}
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := s.Begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Begin should be refused, got %v", err)
	}
	if err := s.Identifying("Identifying lesson"); err != nil {
		t.Fatal(err)
	}
	if v := s.Snapshot(); v.Status != StatusIdentifying || v.Message != "Identifying lesson" {
		t.Fatalf("snapshot %+v", v)
	}
	if err := s.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Reset during a run should be refused, got %v", err)
	}
	if err := s.Generating("Creating slides"); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(testPlan(6, 1)); err != nil {
		t.Fatal(err)
	}
	v := s.Snapshot()
	if v.Status != StatusComplete || v.Index != 0 || v.Count != 6 || v.Current == nil {
		t.Fatalf("snapshot %+v", v)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if v := s.Snapshot(); v.Status != StatusIdle || v.Plan != nil {
		t.Fatalf("reset should clear the plan, got %+v", v)
	}
}

func TestFailAndReset(t *testing.T) {
	s := New("s1")
	if err := s.Fail("boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fail from idle should be refused, got %v", err)
	}
	_ = s.Begin()
	if err := s.Fail("Failed to identify the lesson schedule. Please try again."); err != nil {
		t.Fatal(err)
	}
	if v := s.Snapshot(); v.Status != StatusError || v.Error == "" {
		t.Fatalf("snapshot %+v", v)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if v := s.Snapshot(); v.Error != "" {
		t.Fatalf("reset should clear the error, got %q", v.Error)
	}
}

func TestCompleteRequiresSlides(t *testing.T) {
	s := New("s1")
	_ = s.Begin()
	_ = s.Generating("x")
	if err := s.Complete(testPlan(0, 0)); err == nil {
		t.Fatal("empty plan should be refused")
	}
	if s.Status() != StatusGenerating {
		t.Fatalf("status %q", s.Status())
	}
}

func TestNavigationBounds(t *testing.T) {
	s := presenting(t, 3, 0)
	if moved, _ := s.Prev(); moved {
		t.Error("Prev at the first slide should not move")
	}
	for i := 0; i < 5; i++ {
		_, _ = s.Next()
	}
	if v := s.Snapshot(); v.Index != 2 || v.HasNext() || !v.HasPrev() {
		t.Fatalf("expected last slide, got %+v", v)
	}
	if moved, _ := s.GoTo(7); moved {
		t.Error("GoTo out of range should be ignored")
	}
	if moved, _ := s.GoTo(0); !moved {
		t.Error("GoTo(0) should move")
	}
}

func TestNavigationRequiresLesson(t *testing.T) {
	s := New("s1")
	if _, err := s.Next(); !errors.Is(err, ErrNotPresenting) {
		t.Fatalf("got %v", err)
	}
	if _, err := s.HandleKey("ArrowRight"); !errors.Is(err, ErrNotPresenting) {
		t.Fatalf("got %v", err)
	}
}

func TestHandleKey(t *testing.T) {
	s := presenting(t, 4, 2)
	for _, k := range []string{"ArrowRight", " ", "Space"} {
		if moved, _ := s.HandleKey(k); !moved {
			t.Errorf("%q should advance", k)
		}
	}
	if moved, _ := s.HandleKey("ArrowLeft"); !moved {
		t.Error("ArrowLeft should go back")
	}
	if moved, _ := s.HandleKey("Enter"); moved {
		t.Error("Enter should do nothing")
	}

	if changed, _ := s.SetSourcesOpen(true); !changed {
		t.Fatal("sources should open")
	}
	before := s.Snapshot().Index
	if moved, _ := s.HandleKey("ArrowRight"); moved || s.Snapshot().Index != before {
		t.Error("navigation keys are ignored while sources are open")
	}
	if changed, _ := s.HandleKey("Escape"); !changed || s.Snapshot().ShowSources {
		t.Error("Escape should close the sources overlay")
	}
}

func TestSourcesNeedCitations(t *testing.T) {
	s := presenting(t, 5, 0)
	if changed, _ := s.SetSourcesOpen(true); changed || s.Snapshot().ShowSources {
		t.Fatal("sources overlay should stay closed without citations")
	}
}

func TestExportExclusive(t *testing.T) {
	s := presenting(t, 5, 1)
	plan, err := s.BeginExport()
	if err != nil || plan == nil {
		t.Fatalf("BeginExport: %v", err)
	}
	if !s.Snapshot().Exporting {
		t.Error("snapshot should report the export")
	}
	if _, err := s.BeginExport(); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("second export should be refused, got %v", err)
	}
	s.EndExport()
	if _, err := s.BeginExport(); err != nil {
		t.Fatalf("export after EndExport: %v", err)
	}
}

func TestStoreSweep(t *testing.T) {
	st := NewStore(time.Hour)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	stale := st.Create()
	busy := st.Create()
	_ = busy.Begin()

	now = now.Add(2 * time.Hour)
	fresh := st.Create()

	if n := st.Sweep(); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if _, ok := st.Get(stale.ID); ok {
		t.Error("stale session should be gone")
	}
	if _, ok := st.Get(busy.ID); !ok {
		t.Error("session with a run in flight should be kept")
	}
	if _, ok := st.Get(fresh.ID); !ok {
		t.Error("fresh session should be kept")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore(0)
	s, created := st.GetOrCreate("")
	if !created || s.ID == "" {
		t.Fatalf("expected a new session, got %+v created=%v", s, created)
	}
	again, created := st.GetOrCreate(s.ID)
	if created || again != s {
		t.Fatal("existing id should return the same session")
	}
	if _, created := st.GetOrCreate("unknown"); !created {
		t.Fatal("unknown id should create a session")
	}
	if st.Len() != 2 {
		t.Fatalf("len = %d", st.Len())
	}
}
