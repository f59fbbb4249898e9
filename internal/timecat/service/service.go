package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kiribu/actor-relay/internal/timecat"
	"github.com/kiribu/actor-relay/internal/timecat/repository"
	"go.uber.org/zap"
)

// Result is the outcome of a completion attempt. Everything except
// ResultCompleted is an expected no-op, not an error.
type Result int

const (
	ResultCompleted Result = iota
	ResultNotFound
	ResultAlreadyCompleted
	ResultInvalidIndex
)

func (r Result) String() string {
	switch r {
	case ResultCompleted:
		return "completed"
	case ResultNotFound:
		return "not_found"
	case ResultAlreadyCompleted:
		return "already_completed"
	case ResultInvalidIndex:
		return "invalid_index"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

type Store interface {
	FindByMessageID(ctx context.Context, messageID int) (*repository.TimeRecord, error)
	CompletePending(ctx context.Context, messageID int, category string, at time.Time) (bool, error)
}

type Notifier interface {
	SendMessage(chatID int64, text string) error
	DeleteMessage(chatID int64, messageID int) error
}

type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Complete assigns the category at dataIndex to the pending record created for
// messageID, then replaces the keyboard message with a confirmation in chatID.
func (s *Service) Complete(ctx context.Context, messageID, dataIndex int, chatID int64) (Result, error) {
	log := s.logger.With(zap.Int("message_id", messageID), zap.Int("data_index", dataIndex))

	rec, err := s.store.FindByMessageID(ctx, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up time record: %w", err)
	}
	if rec == nil {
		log.Info("no time record for callback")
		return ResultNotFound, nil
	}
	if !rec.Pending() {
		log.Info("time record already categorized", zap.String("category", *rec.Category))
		return ResultAlreadyCompleted, nil
	}

	label, ok := timecat.Label(dataIndex)
	if !ok {
		log.Warn("callback category index out of range", zap.Int("categories", len(timecat.Categories)))
		return ResultInvalidIndex, nil
	}

	done, err := s.store.CompletePending(ctx, messageID, label, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to complete time record: %w", err)
	}
	if !done {
		log.Info("time record completed concurrently")
		return ResultAlreadyCompleted, nil
	}

	log.Info("time record categorized", zap.String("category", label))

	if err := s.notifier.DeleteMessage(chatID, messageID); err != nil {
		log.Error("failed to remove category keyboard", zap.Error(err))
	}
	if err := s.notifier.SendMessage(chatID, fmt.Sprintf("category recorded: %s", label)); err != nil {
		log.Error("failed to send category confirmation", zap.Error(err))
	}

	return ResultCompleted, nil
}
