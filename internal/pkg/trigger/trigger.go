// Package trigger exposes a job behind POST /, the shape scheduler push
// subscriptions call.
package trigger

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Job interface {
	Run(ctx context.Context) error
}

type Handler struct {
	name   string
	job    Job
	logger *zap.Logger
}

func NewHandler(name string, job Job, logger *zap.Logger) *Handler {
	return &Handler{
		name:   name,
		job:    job,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Run)
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if h.job == nil {
		h.logger.Error("job is not configured", zap.String("job", h.name))
		respond(w, http.StatusInternalServerError, "Service not configured")
		return
	}

	start := time.Now()
	h.logger.Info("trigger received", zap.String("job", h.name))

	if err := h.job.Run(r.Context()); err != nil {
		h.logger.Error("job failed", zap.String("job", h.name), zap.Error(err))
		respond(w, http.StatusInternalServerError, "Job execution failed")
		return
	}

	h.logger.Info("job finished", zap.String("job", h.name), zap.Duration("elapsed", time.Since(start)))
	respond(w, http.StatusOK, "OK")
}

func respond(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
