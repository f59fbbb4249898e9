package router

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindCallback
	KindText
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "callback"
	case KindText:
		return "text"
	case KindMalformed:
		return "malformed"
	default:
		return "unrecognized"
	}
}

// Inbound is the part of an update the router acts on. MessageID and
// DataIndex are set for callbacks, Text for text messages.
type Inbound struct {
	Kind      Kind
	ChatID    int64
	MessageID int
	DataIndex int
	Text      string
	Reason    string
}

func Classify(u tgbotapi.Update) Inbound {
	if cq := u.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return Inbound{Kind: KindMalformed, Reason: "callback query without message"}
		}
		idx, err := strconv.Atoi(strings.TrimSpace(cq.Data))
		if err != nil {
			return Inbound{Kind: KindMalformed, Reason: "callback data is not an index"}
		}
		return Inbound{
			Kind:      KindCallback,
			ChatID:    cq.Message.Chat.ID,
			MessageID: cq.Message.MessageID,
			DataIndex: idx,
		}
	}

	if msg := u.Message; msg != nil && msg.Text != "" {
		if msg.Chat == nil {
			return Inbound{Kind: KindMalformed, Reason: "message without chat"}
		}
		return Inbound{
			Kind:   KindText,
			ChatID: msg.Chat.ID,
			Text:   msg.Text,
		}
	}

	return Inbound{Kind: KindUnrecognized}
}
