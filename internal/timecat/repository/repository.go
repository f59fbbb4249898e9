package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Repository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewRepository(coll *mongo.Collection, logger *zap.Logger) *Repository {
	return &Repository{
		coll:   coll,
		logger: logger,
	}
}

// TimeRecord is one heartbeat. It starts with a nil Category and is completed
// exactly once.
type TimeRecord struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Date                 time.Time          `bson:"date"`
	Category             *string            `bson:"category"`
	TelegramMessageID    *int               `bson:"telegram_message_id,omitempty"`
	LastModificationDate *time.Time         `bson:"_last_modification_date,omitempty"`
}

func (r TimeRecord) Pending() bool {
	return r.Category == nil
}

func (r *Repository) FindByMessageID(ctx context.Context, messageID int) (*TimeRecord, error) {
	var rec TimeRecord
	err := r.coll.FindOne(ctx, bson.M{"telegram_message_id": messageID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("failed to find time record", zap.Int("message_id", messageID), zap.Error(err))
		return nil, fmt.Errorf("failed to find time record: %w", err)
	}
	return &rec, nil
}

// CompletePending sets the category of the record for messageID only if it is
// still pending. It reports whether this call performed the transition.
func (r *Repository) CompletePending(ctx context.Context, messageID int, category string, at time.Time) (bool, error) {
	filter := bson.M{
		"telegram_message_id": messageID,
		"category":            nil,
	}
	update := bson.M{
		"$set": bson.M{
			"category":                category,
			"_last_modification_date": at.UTC(),
		},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("failed to complete time record", zap.Int("message_id", messageID), zap.Error(err))
		return false, fmt.Errorf("failed to complete time record: %w", err)
	}

	r.logger.Info("time record update",
		zap.Int("message_id", messageID),
		zap.Int64("matched", res.MatchedCount),
		zap.Int64("modified", res.ModifiedCount),
	)
	return res.MatchedCount > 0, nil
}

// InsertPending stores a new pending record. messageID is nil when the
// keyboard could not be delivered.
func (r *Repository) InsertPending(ctx context.Context, date time.Time, messageID *int) (primitive.ObjectID, error) {
	rec := TimeRecord{
		Date:              date.UTC(),
		TelegramMessageID: messageID,
	}

	res, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		r.logger.Error("failed to insert time record", zap.Error(err))
		return primitive.NilObjectID, fmt.Errorf("failed to insert time record: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// ImputePending completes every pending record with category.
func (r *Repository) ImputePending(ctx context.Context, category string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"category": nil},
		bson.M{"$set": bson.M{
			"category":                category,
			"_last_modification_date": at.UTC(),
		}},
	)
	if err != nil {
		r.logger.Error("failed to impute pending time records", zap.Error(err))
		return 0, fmt.Errorf("failed to impute pending time records: %w", err)
	}
	return res.ModifiedCount, nil
}
