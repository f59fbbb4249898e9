// Package router decides what happens to a Telegram update: callback queries
// complete a pending time record, text commands are forwarded to the actor
// service registered for their longest matching prefix.
package router

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kiribu/actor-relay/internal/dispatcher/repository"
	"github.com/kiribu/actor-relay/internal/timecat/service"
	"go.uber.org/zap"
)

const (
	HelpCommand   = "/help"
	NotUnderstood = "command not understood"
)

type Action int

const (
	ActionIgnored Action = iota
	ActionMalformed
	ActionCallback
	ActionHelp
	ActionForward
	ActionNoMatch
)

func (a Action) String() string {
	switch a {
	case ActionMalformed:
		return "malformed"
	case ActionCallback:
		return "callback"
	case ActionHelp:
		return "help"
	case ActionForward:
		return "forward"
	case ActionNoMatch:
		return "no_match"
	default:
		return "ignored"
	}
}

type HookSource interface {
	ListHooks(ctx context.Context) ([]repository.Hook, error)
}

type Completer interface {
	Complete(ctx context.Context, messageID, dataIndex int, chatID int64) (service.Result, error)
}

type Forwarder interface {
	Dispatch(ctx context.Context, targetURL string, payload []byte)
}

type Notifier interface {
	SendMessage(chatID int64, text string) error
}

type Router struct {
	hooks         HookSource
	completer     Completer
	forwarder     Forwarder
	notifier      Notifier
	allowedChatID int64
	logger        *zap.Logger
}

type Option func(*Router)

// WithAllowedChat makes the router ignore text messages and callback queries
// from any other chat.
func WithAllowedChat(chatID int64) Option {
	return func(r *Router) {
		r.allowedChatID = chatID
	}
}

func NewRouter(hooks HookSource, completer Completer, forwarder Forwarder, notifier Notifier, logger *zap.Logger, opts ...Option) *Router {
	r := &Router{
		hooks:     hooks,
		completer: completer,
		forwarder: forwarder,
		notifier:  notifier,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route acts on one update. raw is the update exactly as received and is what
// gets forwarded. Failures of collaborators are logged, never returned.
func (r *Router) Route(ctx context.Context, raw []byte, update tgbotapi.Update) Action {
	in := Classify(update)
	log := r.logger.With(zap.Int("update_id", update.UpdateID), zap.Stringer("kind", in.Kind))

	switch in.Kind {
	case KindMalformed:
		log.Warn("malformed update", zap.String("reason", in.Reason))
		return ActionMalformed
	case KindUnrecognized:
		log.Info("received an unhandled update type")
		return ActionIgnored
	}

	if r.allowedChatID != 0 && in.ChatID != r.allowedChatID {
		log.Warn("update from unexpected chat", zap.Int64("chat_id", in.ChatID))
		return ActionIgnored
	}

	if in.Kind == KindCallback {
		res, err := r.completer.Complete(ctx, in.MessageID, in.DataIndex, in.ChatID)
		if err != nil {
			log.Error("failed to complete callback", zap.Int("message_id", in.MessageID), zap.Error(err))
		} else {
			log.Info("callback handled", zap.Int("message_id", in.MessageID), zap.Stringer("result", res))
		}
		return ActionCallback
	}

	hooks, err := r.hooks.ListHooks(ctx)
	if err != nil {
		log.Error("routing table unavailable", zap.Error(err))
		r.reply(log, in.ChatID, NotUnderstood)
		return ActionNoMatch
	}

	if in.Text == HelpCommand {
		r.reply(log, in.ChatID, helpText(hooks))
		return ActionHelp
	}

	hook, ok := SelectHook(hooks, in.Text)
	if !ok {
		log.Info("no hook matched", zap.String("text", in.Text))
		r.reply(log, in.ChatID, NotUnderstood)
		return ActionNoMatch
	}

	log.Info("forwarding update", zap.String("prefix", hook.Prefix), zap.String("target_url", hook.URL))
	r.forwarder.Dispatch(ctx, hook.URL, raw)
	return ActionForward
}

func (r *Router) reply(log *zap.Logger, chatID int64, text string) {
	if err := r.notifier.SendMessage(chatID, text); err != nil {
		log.Error("failed to reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
