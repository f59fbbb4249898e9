package service

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kiribu/actor-relay/internal/timecat"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	InsertPending(ctx context.Context, date time.Time, messageID *int) (primitive.ObjectID, error)
	ImputePending(ctx context.Context, category string, at time.Time) (int64, error)
}

type Notifier interface {
	SendKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error)
}

// Service asks the chat what is going on right now and records a pending
// time record for the answer to complete.
type Service struct {
	store    Store
	notifier Notifier
	chatID   int64
	prompt   string
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, notifier Notifier, chatID int64, prompt string, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		chatID:   chatID,
		prompt:   prompt,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Service) Run(ctx context.Context) error {
	now := s.now()
	s.logger.Info("heartbeat running", zap.Time("at", now))

	var messageID *int
	id, err := s.notifier.SendKeyboard(s.chatID, s.prompt, timecat.Keyboard())
	if err != nil {
		s.logger.Error("failed to send category keyboard", zap.Error(err))
	} else {
		messageID = &id
	}

	// Whatever is still unanswered from earlier heartbeats is closed before the
	// new record is inserted, so the new one stays pending.
	imputed, err := s.store.ImputePending(ctx, timecat.Imputed, now)
	if err != nil {
		return fmt.Errorf("failed to impute pending records: %w", err)
	}
	if imputed > 0 {
		s.logger.Info("imputed unanswered records", zap.Int64("count", imputed), zap.String("category", timecat.Imputed))
	}

	recID, err := s.store.InsertPending(ctx, now, messageID)
	if err != nil {
		return fmt.Errorf("failed to insert pending record: %w", err)
	}

	s.logger.Info("pending record inserted", zap.String("record_id", recID.Hex()))
	return nil
}
