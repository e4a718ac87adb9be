package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/internal/watch"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// API exposes a registry. The hub is optional; without it /ws answers 404.
type API struct {
	registry *metadata.Registry
	hub      *watch.EventHub
	logger   *zap.Logger
	started  time.Time
}

// NewAPI creates the API handlers
func NewAPI(registry *metadata.Registry, hub *watch.EventHub, logger *zap.Logger) *API {
	return &API{
		registry: registry,
		hub:      hub,
		logger:   logging.OrNop(logger),
		started:  time.Now(),
	}
}

// Router returns the routes:
//
//	GET /api/health
//	GET /api/symbols                     ?pattern=&stability=&document=
//	GET /api/symbols/{ref}
//	GET /api/symbols/{ref}/dependencies  ?depth=&reverse=
//	GET /api/guides
//	GET /api/guides/{parent}
//	GET /ws
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(a.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Get("/symbols", a.listSymbols)
		r.Get("/symbols/{ref}", a.getSymbol)
		r.Get("/symbols/{ref}/dependencies", a.dependencies)
		r.Get("/guides", a.listGuides)
		r.Get("/guides/{parent}", a.guidesByParent)
	})
	r.Get("/ws", a.websocket)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		RenderError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})
	return r
}

// HealthResponse is the body of /api/health
type HealthResponse struct {
	Status  string         `json:"status"`
	Uptime  string         `json:"uptime"`
	Stats   metadata.Stats `json:"stats"`
	Clients int            `json:"clients"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(a.started).Round(time.Second).String(),
		Stats:  a.registry.Stats(),
	}
	if a.hub != nil {
		resp.Clients = a.hub.ConnectionCount()
	}
	RenderJSON(w, http.StatusOK, resp)
}

func (a *API) listSymbols(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	RenderJSON(w, http.StatusOK, a.registry.Query(metadata.Filter{
		Kind:      metadata.KindSymbol,
		Pattern:   q.Get("pattern"),
		Stability: q.Get("stability"),
		Document:  q.Get("document"),
	}))
}

func (a *API) getSymbol(w http.ResponseWriter, r *http.Request) {
	entry, err := a.registry.Symbol(chi.URLParam(r, "ref"))
	if err != nil {
		RenderError(w, http.StatusNotFound, err)
		return
	}
	RenderJSON(w, http.StatusOK, entry)
}

func (a *API) dependencies(w http.ResponseWriter, r *http.Request) {
	opts := metadata.DependencyOptions{Depth: 1}
	q := r.URL.Query()
	if v := q.Get("depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil || depth < 0 {
			RenderError(w, http.StatusBadRequest, fmt.Errorf("invalid depth %q", v))
			return
		}
		opts.Depth = depth
	}
	if v := q.Get("reverse"); v != "" {
		reverse, err := strconv.ParseBool(v)
		if err != nil {
			RenderError(w, http.StatusBadRequest, fmt.Errorf("invalid reverse %q", v))
			return
		}
		opts.Reverse = reverse
	}

	graph, err := a.registry.Dependencies(chi.URLParam(r, "ref"), opts)
	if err != nil {
		RenderError(w, http.StatusNotFound, err)
		return
	}
	RenderJSON(w, http.StatusOK, graph)
}

func (a *API) listGuides(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, a.registry.Guides())
}

func (a *API) guidesByParent(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, a.registry.GuidesByParent(chi.URLParam(r, "parent")))
}

func (a *API) websocket(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		RenderError(w, http.StatusNotFound, fmt.Errorf("build events are not enabled"))
		return
	}
	a.hub.HandleWebSocket(w, r)
}
