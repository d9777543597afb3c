package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plantwatch/internal/core"
	"plantwatch/internal/dashboard"
	"plantwatch/internal/types"
)

//go:embed dashboard.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("dashboard").Parse(pageSource))

// Renderer exposes the refresh orchestrator.
type Renderer interface {
	Snapshot() *dashboard.RenderState
	Refresh(ctx context.Context) (*dashboard.RenderState, error)
	Status() dashboard.Status
}

// Sessions exposes the page session store.
type Sessions interface {
	Create() *dashboard.Session
	Get(id string) (*dashboard.Session, error)
	Act(ctx context.Context, id string) (dashboard.TriggerView, error)
}

// pageData feeds the dashboard page template.
type pageData struct {
	SessionID string
	// Cycle is the render cycle current when the page was served; the page
	// waits for a newer one before its first draw.
	Cycle   uint64
	Prompt  string
	Heading string
}

// DashboardHandler serves the dashboard page and its JSON API.
type DashboardHandler struct {
	renderer Renderer
	sessions Sessions
	logger   *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(renderer Renderer, sessions Sessions, l *slog.Logger) *DashboardHandler {
	if l == nil {
		l = slog.Default()
	}
	return &DashboardHandler{renderer: renderer, sessions: sessions, logger: l}
}

// RegisterRoutes mounts the dashboard routes.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Page)
	r.Route("/api", func(r chi.Router) {
		r.Get("/render", h.Render)
		r.Post("/refresh", h.Refresh)
		r.Get("/status", h.Status)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(sessionContext)
			r.Get("/", h.GetSession)
			r.Post("/actions", h.Act)
		})
	})
}

// sessionContext copies the {id} URL parameter into the request context.
func sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := types.WithSessionID(r.Context(), chi.URLParam(r, "id"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Page handles GET /. Every load starts a new session, so a reload always
// shows the Idle prompt, and starts a refresh cycle (or joins the one in
// flight) so the first draw is current.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()

	var cycle uint64
	if rs := h.renderer.Snapshot(); rs != nil {
		cycle = rs.Cycle
	}
	h.refreshInBackground(r)

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		SessionID: sess.ID,
		Cycle:     cycle,
		Prompt:    dashboard.RecommendationPrompt,
		Heading:   dashboard.RecommendationHeading,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render dashboard page", "error", err)
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// refreshInBackground runs a refresh that outlives the page request.
func (h *DashboardHandler) refreshInBackground(r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.renderer.Refresh(ctx); err != nil {
			h.logger.WarnContext(ctx, "page load refresh failed, previous render retained",
				"error", err,
				"request_id", types.GetRequestID(ctx),
			)
		}
	}()
}

// Render handles GET /api/render.
func (h *DashboardHandler) Render(w http.ResponseWriter, r *http.Request) {
	rs := h.renderer.Snapshot()
	if rs == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundRender, "no render available yet", nil))
		return
	}
	core.JSON(w, r, http.StatusOK, rs)
}

// Refresh handles POST /api/refresh. A request arriving during a cycle
// waits for that cycle instead of starting another.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	rs, err := h.renderer.Refresh(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, rs)
}

// Status handles GET /api/status.
func (h *DashboardHandler) Status(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, h.renderer.Status())
}

// GetSession handles GET /api/sessions/{id}.
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, _ := types.GetSessionID(r.Context())
	sess, err := h.sessions.Get(id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, sess.Trigger.View())
}

// Act handles POST /api/sessions/{id}/actions, the recommendation button.
func (h *DashboardHandler) Act(w http.ResponseWriter, r *http.Request) {
	id, _ := types.GetSessionID(r.Context())
	view, err := h.sessions.Act(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, view)
}
