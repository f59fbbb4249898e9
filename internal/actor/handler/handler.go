package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxPayloadSize = 2 << 20
	ChannelPyas2   = "pyas2"
)

type Sender interface {
	SendMessage(chatID int64, text string) error
}

// forwardedUpdate is a Telegram update as relayed by the dispatcher, optionally
// tagged with the bot channel it should be answered on.
type forwardedUpdate struct {
	tgbotapi.Update
	Channel string `json:"channel"`
}

// Handler echoes forwarded text commands back to the owner chat. It stands in
// for any actor service behind the dispatcher: the request is already
// authenticated by the platform before it gets here.
type Handler struct {
	defaultBot Sender
	channels   map[string]Sender
	chatID     int64
	logger     *zap.Logger
}

func NewHandler(defaultBot Sender, channels map[string]Sender, chatID int64, logger *zap.Logger) *Handler {
	return &Handler{
		defaultBot: defaultBot,
		channels:   channels,
		chatID:     chatID,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleForwarded)
}

func (h *Handler) HandleForwarded(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("forwarded payload too large", zap.Int64("limit", tooLarge.Limit))
			respond(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		respond(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var payload forwardedUpdate
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("invalid forwarded payload", zap.Error(err))
		respond(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	bot := h.senderFor(payload.Channel)
	if bot == nil || h.chatID == 0 {
		h.logger.Error("telegram token or chat id not configured", zap.String("channel", payload.Channel))
		respond(w, http.StatusInternalServerError, "Service not configured")
		return
	}

	if payload.Message == nil {
		h.logger.Error("forwarded payload has no message", zap.Int("update_id", payload.UpdateID))
		respond(w, http.StatusOK, "OK")
		return
	}

	text := strings.TrimSpace(payload.Message.Text)
	if text == "" {
		h.logger.Error("forwarded message has no text", zap.Int("update_id", payload.UpdateID))
		respond(w, http.StatusOK, "OK")
		return
	}

	h.logger.Info("processing forwarded payload", zap.Int("update_id", payload.UpdateID), zap.String("text", text))
	if err := bot.SendMessage(h.chatID, text); err != nil {
		h.logger.Error("failed to echo message", zap.Error(err))
	}

	respond(w, http.StatusOK, "OK")
}

func (h *Handler) senderFor(channel string) Sender {
	if bot, ok := h.channels[channel]; ok && bot != nil {
		return bot
	}
	return h.defaultBot
}

func respond(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
