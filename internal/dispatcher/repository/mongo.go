package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MongoRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewMongoRepository(coll *mongo.Collection, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{
		coll:   coll,
		logger: logger,
	}
}

func (r *MongoRepository) ListHooks(ctx context.Context) ([]Hook, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 0, "prefix": 1, "url": 1})

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("failed to list hooks", zap.Error(err))
		return nil, fmt.Errorf("failed to list hooks: %w", err)
	}

	var hooks []Hook
	if err := cur.All(ctx, &hooks); err != nil {
		r.logger.Error("failed to decode hooks", zap.Error(err))
		return nil, fmt.Errorf("failed to decode hooks: %w", err)
	}

	return validHooks(hooks, r.logger), nil
}
