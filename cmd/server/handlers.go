package main

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gnemet/LessonForge/internal/ai"
	"github.com/gnemet/LessonForge/internal/catalog"
	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/i18n"
	"github.com/gnemet/LessonForge/internal/lesson"
	"github.com/gnemet/LessonForge/internal/logger"
	"github.com/gnemet/LessonForge/internal/planner"
	"github.com/gnemet/LessonForge/internal/pptx"
	"github.com/gnemet/LessonForge/internal/session"
)

const (
	dateLayout    = "2006-01-02"
	sessionCookie = "lessonforge_session"
	pptxMIME      = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	exportFailedMessage = "Failed to generate PowerPoint. Please check your internet connection (needed for images)."
)

// imageSource fetches slide backgrounds and builds the URLs the viewer loads.
type imageSource interface {
	pptx.ImageSource
	URL(keyword string) string
}

type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *session.Store
	planner *planner.Service
	images  imageSource
	views   *views
	now     func() time.Time

	runs sync.WaitGroup
}

func newApp(cfg *config.Config, log *logger.Logger, provider planner.Provider, imgs imageSource) (*app, error) {
	if err := i18n.Init(cfg.Application.Resources); err != nil {
		log.Warn("Translations not loaded", "dir", cfg.Application.Resources, "error", err)
	}
	v, err := newViews(cfg.Application.Templates, imgs.URL)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     log,
		store:   session.NewStore(cfg.Application.SessionTTL),
		planner: planner.NewService(provider, log),
		images:  imgs,
		views:   v,
		now:     time.Now,
	}, nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(a.cfg.Application.Static))))
	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("POST /generate", a.handleGenerate)
	mux.HandleFunc("GET /status", a.handleStatus)
	mux.HandleFunc("POST /reset", a.handleReset)
	mux.HandleFunc("POST /lang", a.handleLang)

	mux.HandleFunc("POST /deck/next", a.handleNav(func(s *session.Session, r *http.Request) (bool, error) { return s.Next() }))
	mux.HandleFunc("POST /deck/prev", a.handleNav(func(s *session.Session, r *http.Request) (bool, error) { return s.Prev() }))
	mux.HandleFunc("POST /deck/goto", a.handleNav(func(s *session.Session, r *http.Request) (bool, error) {
		i, err := strconv.Atoi(r.FormValue("index"))
		if err != nil {
			return false, errBadRequest
		}
		return s.GoTo(i)
	}))
	mux.HandleFunc("POST /deck/key", a.handleNav(func(s *session.Session, r *http.Request) (bool, error) {
		return s.HandleKey(r.FormValue("key"))
	}))
	mux.HandleFunc("POST /deck/sources", a.handleNav(func(s *session.Session, r *http.Request) (bool, error) {
		open, err := strconv.ParseBool(r.FormValue("open"))
		if err != nil {
			return false, errBadRequest
		}
		return s.SetSourcesOpen(open)
	}))
	mux.HandleFunc("GET /deck/download", a.handleDownload)

	return a.withLogging(a.withSession(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs every request with its status and duration.
func (a *app) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasPrefix(r.URL.Path, "/static/") || r.URL.Path == "/status" {
			return
		}
		a.log.Debug("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start).Round(time.Microsecond))
	})
}

type ctxKey struct{}

var errBadRequest = errors.New("bad request")

// withSession attaches the caller's session, issuing a cookie for new ones.
func (a *app) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/static/") || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess, created := a.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return s
}

func getBaseData(r *http.Request, title string) map[string]any {
	return map[string]any{
		"Title": title,
		"Lang":  i18n.GetLang(r),
		"Langs": i18n.GetAvailableLangs(),
	}
}

func (a *app) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.views.render(w, name, data); err != nil {
		a.log.Error("Error executing template", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (a *app) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: a.store.Len()})
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := sessionFrom(r).Snapshot()
	data := getBaseData(r, a.cfg.Application.Name)
	data["View"] = view
	data["Status"] = string(view.Status)
	data["Sundays"] = lesson.UpcomingSundays(a.now(), 4)
	data["Audiences"] = catalog.Audiences()
	data["DefaultAudience"] = lesson.GospelDoctrine.Key()
	if view.Plan != nil {
		data["AudienceEntry"] = catalog.MustLookup(view.Plan.Audience)
	}
	a.renderTemplate(w, "index.html", data)
}

func (a *app) handleGenerate(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation(dateLayout, r.FormValue("date"), time.Local)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	audience, err := lesson.ParseAudience(r.FormValue("audience"))
	if err != nil {
		http.Error(w, "Unknown audience", http.StatusBadRequest)
		return
	}

	sess := sessionFrom(r)
	if err := sess.Begin(); err != nil {
		http.Error(w, "A lesson is already being generated", http.StatusConflict)
		return
	}

	a.runs.Add(1)
	go a.runPipeline(context.WithoutCancel(r.Context()), sess, date, audience)

	if wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, statusBody(sess.Snapshot()))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// runPipeline drives one generation run to complete or error.
func (a *app) runPipeline(ctx context.Context, sess *session.Session, date time.Time, audience lesson.Audience) {
	defer a.runs.Done()
	log := a.log.With("session", sess.ID)

	plan, err := a.planner.Generate(ctx, date, audience, sess)
	if err != nil {
		msg := userMessage(err)
		log.Error("Lesson generation failed", "error", err)
		if ferr := sess.Fail(msg); ferr != nil {
			log.Warn("Could not record failure", "error", ferr)
		}
		return
	}
	if err := sess.Complete(plan); err != nil {
		log.Error("Could not complete session", "error", err)
		_ = sess.Fail(planner.MsgGenerateFailed)
		return
	}
	log.Info("Lesson ready", "topic", plan.Topic, "slides", len(plan.Slides))
}

func userMessage(err error) string {
	var se *planner.StepError
	switch {
	case errors.As(err, &se):
		return se.Message
	case errors.Is(err, ai.ErrMissingAPIKey):
		return err.Error()
	default:
		return planner.MsgGenerateFailed
	}
}

type statusResponse struct {
	Status  session.Status `json:"status"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
}

func statusBody(v session.View) statusResponse {
	return statusResponse{Status: v.Status, Message: v.Message, Error: v.Error}
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusBody(sessionFrom(r).Snapshot()))
}

func (a *app) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Reset(); err != nil {
		http.Error(w, "A lesson is still being generated", http.StatusConflict)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, statusBody(sess.Snapshot()))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *app) handleLang(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "lang", Value: r.FormValue("lang"), Path: "/", SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type navResponse struct {
	Changed     bool `json:"changed"`
	Index       int  `json:"index"`
	Count       int  `json:"count"`
	ShowSources bool `json:"showSources"`
}

func (a *app) handleNav(op func(*session.Session, *http.Request) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		changed, err := op(sess, r)
		switch {
		case errors.Is(err, errBadRequest):
			http.Error(w, "Invalid parameter", http.StatusBadRequest)
			return
		case errors.Is(err, session.ErrNotPresenting):
			http.Error(w, "No lesson is being presented", http.StatusConflict)
			return
		case err != nil:
			a.log.Error("Navigation failed", "error", err)
			http.Error(w, "Navigation failed", http.StatusInternalServerError)
			return
		}
		if wantsJSON(r) {
			v := sess.Snapshot()
			writeJSON(w, http.StatusOK, navResponse{Changed: changed, Index: v.Index, Count: v.Count, ShowSources: v.ShowSources})
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (a *app) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	plan, err := sess.BeginExport()
	switch {
	case errors.Is(err, session.ErrExportInProgress):
		http.Error(w, "An export is already running", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "No lesson is being presented", http.StatusConflict)
		return
	}
	defer sess.EndExport()

	log := a.log.With("session", sess.ID, "topic", plan.Topic)
	start := time.Now()
	data, name, err := pptx.ExportLesson(r.Context(), plan, a.images)
	if err != nil {
		log.Error("Export failed", "error", err)
		http.Error(w, exportFailedMessage, http.StatusBadGateway)
		return
	}
	log.Info("Export complete", "bytes", len(data), "took", time.Since(start).Round(time.Millisecond))

	w.Header().Set("Content-Type", pptxMIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
