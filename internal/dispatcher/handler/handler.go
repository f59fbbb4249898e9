package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kiribu/actor-relay/internal/dispatcher/router"
	"go.uber.org/zap"
)

const maxUpdateSize = 2 << 20

type Router interface {
	Route(ctx context.Context, raw []byte, update tgbotapi.Update) router.Action
}

type Handler struct {
	router Router
	logger *zap.Logger
}

// NewHandler builds the webhook handler. A nil router means the service
// started without its required configuration and every update gets a 500.
func NewHandler(r Router, logger *zap.Logger) *Handler {
	return &Handler{
		router: r,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Webhook)
}

// Webhook acknowledges every well-formed update with 200 regardless of what
// routing did with it; Telegram redelivers anything else.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.router == nil {
		h.logger.Error("dispatcher is not configured")
		h.respond(w, http.StatusInternalServerError, "Service not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("update body too large", zap.Int64("limit", tooLarge.Limit))
			h.respond(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		h.logger.Error("failed to read update", zap.Error(err))
		h.respond(w, http.StatusBadRequest, "Invalid request")
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		h.respond(w, http.StatusOK, "OK")
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("could not decode telegram update", zap.Error(err))
		h.respond(w, http.StatusBadRequest, "Invalid request")
		return
	}

	action := h.router.Route(r.Context(), body, update)
	h.logger.Info("update routed", zap.Int("update_id", update.UpdateID), zap.Stringer("action", action))

	h.respond(w, http.StatusOK, "OK")
}

func (h *Handler) respond(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
