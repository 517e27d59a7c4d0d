package main

import (
	"bytes"
	"html/template"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/gnemet/LessonForge/internal/i18n"
	"github.com/gnemet/LessonForge/internal/lesson"
)

// views holds the parsed page templates and reparses them on Reload.
type views struct {
	dir   string
	funcs template.FuncMap

	mu   sync.RWMutex
	tmpl *template.Template
}

func newViews(dir string, imageURL func(string) string) (*views, error) {
	v := &views{
		dir: dir,
		funcs: template.FuncMap{
			"T":          i18n.T,
			"markdown":   renderMarkdown,
			"imageURL":   imageURL,
			"inc":        func(i int) int { return i + 1 },
			"formatDate": lesson.FormatDate,
			"isoDate":    func(t time.Time) string { return t.Format(dateLayout) },
		},
	}
	if err := v.Reload(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *views) Reload() error {
	t, err := template.New("").Funcs(v.funcs).ParseGlob(filepath.Join(v.dir, "*.html"))
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.tmpl = t
	v.mu.Unlock()
	return nil
}

// render executes into a buffer so a template error never sends half a page.
func (v *views) render(w io.Writer, name string, data any) error {
	v.mu.RLock()
	t := v.tmpl
	v.mu.RUnlock()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

const markdownFlags = blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.HrefTargetBlank

// renderMarkdown renders model-written text. Raw HTML in the input is dropped.
// HTMLRenderer keeps per-document state, so each call gets its own.
func renderMarkdown(s string) template.HTML {
	out := blackfriday.Run([]byte(s),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: markdownFlags})),
	)
	return template.HTML(out)
}
