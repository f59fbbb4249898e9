package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const maxUpdateSize = 2 << 20

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Handler answers text messages with a model completion.
type Handler struct {
	generator     Generator
	bot           Sender
	allowedChatID int64
	timeout       time.Duration
	logger        *zap.Logger
}

func NewHandler(generator Generator, bot Sender, allowedChatID int64, timeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		generator:     generator,
		bot:           bot,
		allowedChatID: allowedChatID,
		timeout:       timeout,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Webhook)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil || h.bot == nil {
		h.logger.Error("service is not configured correctly, missing API keys")
		respond(w, http.StatusInternalServerError, "Service not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("update body too large", zap.Int64("limit", tooLarge.Limit))
			respond(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		respond(w, http.StatusBadRequest, "Invalid request")
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("could not decode telegram update", zap.Error(err))
		respond(w, http.StatusBadRequest, "Invalid request")
		return
	}

	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		h.logger.Info("received an update without a text message", zap.Int("update_id", update.UpdateID))
		respond(w, http.StatusOK, "OK")
		return
	}

	chatID := msg.Chat.ID
	if h.allowedChatID != 0 && chatID != h.allowedChatID {
		h.logger.Warn("message from unexpected chat", zap.Int64("chat_id", chatID))
		respond(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.logger.Info("generating reply", zap.Int64("chat_id", chatID))
	reply, err := h.generator.Generate(ctx, msg.Text)
	if err != nil {
		h.logger.Error("failed to generate reply", zap.Int64("chat_id", chatID), zap.Error(err))
		respond(w, http.StatusOK, "OK")
		return
	}

	if err := h.bot.SendMessage(chatID, reply); err != nil {
		h.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	} else {
		h.logger.Info("reply sent", zap.Int64("chat_id", chatID))
	}

	respond(w, http.StatusOK, "OK")
}

func respond(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
