// Package httpapi serves the HTTP control API of the daemon.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"libdb.so/emberglow/internal/effects"
	"libdb.so/emberglow/internal/scheduler"
)

//go:embed static
var staticFS embed.FS

// Controller is what the API drives. It is implemented by
// *scheduler.Scheduler.
type Controller interface {
	Start(ctx context.Context, name string, params effects.Params) error
	StopAll(ctx context.Context) error
	Status() scheduler.Status
}

var _ Controller = (*scheduler.Scheduler)(nil)

// Options configures the handler returned by New.
type Options struct {
	Controller Controller
	// Preview serves /ws. The route is absent if nil.
	Preview http.Handler
	// Metrics serves /metrics. The route is absent if nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

type handler struct {
	ctrl   Controller
	logger *slog.Logger
	index  []byte
}

// New creates the API handler.
func New(opts Options) http.Handler {
	index, err := fs.ReadFile(staticFS, "static/index.html")
	if err != nil {
		panic(err) // embedded
	}

	h := &handler{
		ctrl:   opts.Controller,
		logger: opts.Logger,
		index:  index,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", h.getIndex)
	r.Get("/effects", h.getEffects)
	r.Get("/status", h.getStatus)
	r.Post("/start_effect", h.startEffect)
	r.Post("/stop_all", h.stopAll)

	if opts.Preview != nil {
		r.Get("/ws", opts.Preview.ServeHTTP)
	}
	if opts.Metrics != nil {
		r.Get("/metrics", opts.Metrics.ServeHTTP)
	}

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var statusOK = statusResponse{Status: "OK"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found"))
}

func (h *handler) getIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(h.index)
}

func (h *handler) getEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Effects []effects.Descriptor `json:"effects"`
	}{
		Effects: effects.Descriptors(),
	})
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug(
					"handled request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
