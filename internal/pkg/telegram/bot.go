package telegram

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is a thin wrapper around the Bot API client used by every service to
// talk back to a chat.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewBot(token string, timeout time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	logger.Info("Authorized", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:    api,
		logger: logger,
	}, nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send markdown message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendKeyboard sends text with an inline keyboard and returns the id of the
// sent message, which is what callback queries reference later.
func (b *Bot) SendKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send keyboard to chat %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// InlineKeyboard lays labels out row by row, columns buttons per row. Each
// button's callback data is the label's index in decimal.
func InlineKeyboard(labels []string, columns int) tgbotapi.InlineKeyboardMarkup {
	if columns < 1 {
		columns = 1
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(labels); i += columns {
		var row []tgbotapi.InlineKeyboardButton
		for j := i; j < i+columns && j < len(labels); j++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(labels[j], strconv.Itoa(j)))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
