package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Repository struct {
	habits  *mongo.Collection
	punches *mongo.Collection
	anchors *mongo.Collection
	logger  *zap.Logger
}

func NewRepository(habits, punches, anchors *mongo.Collection, logger *zap.Logger) *Repository {
	return &Repository{
		habits:  habits,
		punches: punches,
		anchors: anchors,
		logger:  logger,
	}
}

type Habit struct {
	Name     string      `bson:"name" validate:"required"`
	Cronline string      `bson:"cronline" validate:"required"`
	DelayMin int         `bson:"delaymin" validate:"gte=0"`
	Enabled  bool        `bson:"enabled"`
	OnFailed interface{} `bson:"onFailed,omitempty"`
	Info     interface{} `bson:"info,omitempty"`
}

// Punch is one due occurrence of a habit. It is unique by Name and Date.
type Punch struct {
	Name     string      `bson:"name"`
	Date     time.Time   `bson:"date"`
	Due      time.Time   `bson:"due"`
	OnFailed interface{} `bson:"onFailed"`
	Info     interface{} `bson:"info"`
}

type anchor struct {
	Name string    `bson:"name"`
	Date time.Time `bson:"date"`
}

const StatusFailed = "FAILED"

func (r *Repository) ListEnabled(ctx context.Context) ([]Habit, error) {
	cur, err := r.habits.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		r.logger.Error("failed to list habits", zap.Error(err))
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	var habits []Habit
	if err := cur.All(ctx, &habits); err != nil {
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}
	return habits, nil
}

func (r *Repository) Anchors(ctx context.Context) (map[string]time.Time, error) {
	cur, err := r.anchors.Find(ctx, bson.M{})
	if err != nil {
		r.logger.Error("failed to list habit anchors", zap.Error(err))
		return nil, fmt.Errorf("failed to list habit anchors: %w", err)
	}

	var docs []anchor
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode habit anchors: %w", err)
	}

	anchors := make(map[string]time.Time, len(docs))
	for _, a := range docs {
		anchors[a.Name] = a.Date
	}
	return anchors, nil
}

func (r *Repository) UpsertPunches(ctx context.Context, punches []Punch) (int64, error) {
	if len(punches) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(punches))
	for _, p := range punches {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": p.Name, "date": p.Date}).
			SetUpdate(bson.M{"$set": p}).
			SetUpsert(true))
	}

	res, err := r.punches.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("failed to upsert habit punches", zap.Error(err))
		return 0, fmt.Errorf("failed to upsert habit punches: %w", err)
	}
	return res.UpsertedCount, nil
}

// SetAnchors records, per habit name, the time up to which punches exist.
func (r *Repository) SetAnchors(ctx context.Context, anchors map[string]time.Time) error {
	if len(anchors) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(anchors))
	for name, at := range anchors {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": name}).
			SetUpdate(bson.M{"$set": bson.M{"date": at.UTC()}}).
			SetUpsert(true))
	}

	if _, err := r.anchors.BulkWrite(ctx, models); err != nil {
		r.logger.Error("failed to update habit anchors", zap.Error(err))
		return fmt.Errorf("failed to update habit anchors: %w", err)
	}
	return nil
}

// FailOverdue marks every punch past due that nobody resolved.
func (r *Repository) FailOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.punches.UpdateMany(ctx,
		bson.M{"due": bson.M{"$lt": now}, "status": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"status": StatusFailed}},
	)
	if err != nil {
		r.logger.Error("failed to mark overdue habit punches", zap.Error(err))
		return 0, fmt.Errorf("failed to mark overdue habit punches: %w", err)
	}
	return res.ModifiedCount, nil
}
