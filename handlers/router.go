// Package handlers serves the dashboard over HTTP with gin.
package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sector-intel/components"
	"sector-intel/models"
	"sector-intel/pages"
	"sector-intel/query"
)

const (
	ClientCookie    = "sector_intel_client"
	clientCookieAge = 365 * 24 * 60 * 60
)

type Backend interface {
	pages.Backend
	Health(ctx context.Context) error
}

type Deps struct {
	Sessions *pages.Sessions
	Backend  Backend
	Queries  *query.Client
	Catalog  *models.Catalog
	Logger   *zap.Logger
	// RenderWait bounds how long a page waits for its data before the
	// skeleton is rendered.
	RenderWait     time.Duration
	RefreshSeconds int
	Templates      *template.Template
	Now            func() time.Time
}

type Handler struct {
	sessions       *pages.Sessions
	backend        Backend
	queries        *query.Client
	catalog        *models.Catalog
	log            *zap.Logger
	tmpl           *template.Template
	renderWait     time.Duration
	refreshSeconds int
	now            func() time.Time
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		sessions:       deps.Sessions,
		backend:        deps.Backend,
		queries:        deps.Queries,
		catalog:        deps.Catalog,
		log:            deps.Logger,
		tmpl:           deps.Templates,
		renderWait:     deps.RenderWait,
		refreshSeconds: deps.RefreshSeconds,
		now:            deps.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.tmpl == nil {
		h.tmpl = components.MustTemplates()
	}
	if h.renderWait <= 0 {
		h.renderWait = 2 * time.Second
	}
	if h.refreshSeconds <= 0 {
		h.refreshSeconds = 2
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func NewRouter(deps Deps) *gin.Engine {
	h := NewHandler(deps)

	r := gin.New()
	r.Use(requestLogger(h.log), h.recovery())
	r.SetHTMLTemplate(h.tmpl)

	r.GET("/", h.Dashboard)
	r.GET("/sector/:sectorId", h.Sector)
	r.POST("/pipeline/run", h.RunPipeline)
	r.POST("/pipeline/financials", h.RefreshFinancials)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/sectors", h.GetSectors)
		api.GET("/stats", h.GetStats)
	}

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", components.ErrorPage{Status: http.StatusNotFound, Error: "Page not found."})
	})
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		log.Info("request", fields...)
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.Error("panic serving request", zap.String("path", c.Request.URL.Path), zap.Any("panic", recovered))
		c.HTML(http.StatusInternalServerError, "error.html", components.ErrorPage{
			Status: http.StatusInternalServerError,
			Error:  "Something went wrong.",
		})
		c.Abort()
	})
}

// session returns the caller's session, issuing a client id cookie on the
// first visit.
func (h *Handler) session(c *gin.Context) *pages.Session {
	id, err := c.Cookie(ClientCookie)
	if err == nil {
		_, err = uuid.Parse(id)
	}
	if err != nil {
		id = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(ClientCookie, id, clientCookieAge, "/", "", false, true)
	}
	return h.sessions.Get(id)
}

// render executes a page into a buffer so a failing template yields the
// error page instead of a truncated response.
func (h *Handler) render(c *gin.Context, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("rendering template failed", zap.String("template", name), zap.Error(err))
		_ = c.Error(err)
		c.HTML(http.StatusInternalServerError, "error.html", components.ErrorPage{
			Status: http.StatusInternalServerError,
			Error:  "Failed to render page.",
		})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// waitContext bounds a render wait by the request's lifetime.
func (h *Handler) waitContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.renderWait)
}
