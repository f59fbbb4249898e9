package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func TestCompletePending(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2025, 7, 6, 12, 0, 0, 0, time.UTC)

	mt.Run("filters on pending category", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		repo := NewRepository(mt.Coll, zap.NewNop())

		done, err := repo.CompletePending(context.Background(), 100, "gym", at)
		require.NoError(mt, err)
		assert.True(mt, done)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "update", ev.CommandName)

		updates := ev.Command.Lookup("updates").Array()
		values, err := updates.Values()
		require.NoError(mt, err)
		require.Len(mt, values, 1, "a single update statement")

		stmt := values[0].Document()
		filter := stmt.Lookup("q").Document()
		assert.Equal(mt, int32(100), filter.Lookup("telegram_message_id").Int32())
		assert.Equal(mt, bsontype.Null, filter.Lookup("category").Type)

		set := stmt.Lookup("u", "$set").Document()
		assert.Equal(mt, "gym", set.Lookup("category").StringValue())
		assert.Equal(mt, at, set.Lookup("_last_modification_date").Time().UTC())

		multi, ok := stmt.Lookup("multi").BooleanOK()
		assert.False(mt, ok && multi)
	})

	mt.Run("already categorized", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		repo := NewRepository(mt.Coll, zap.NewNop())

		done, err := repo.CompletePending(context.Background(), 100, "gym", at)
		require.NoError(mt, err)
		assert.False(mt, done)
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
			Name:    "BadValue",
		}))
		repo := NewRepository(mt.Coll, zap.NewNop())

		_, err := repo.CompletePending(context.Background(), 100, "gym", at)
		assert.Error(mt, err)
	})
}

func TestFindByMessageID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing record", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewRepository(mt.Coll, zap.NewNop())

		rec, err := repo.FindByMessageID(context.Background(), 404)
		require.NoError(mt, err)
		assert.Nil(mt, rec)
	})

	mt.Run("pending record", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "date", Value: time.Date(2025, 7, 6, 11, 0, 0, 0, time.UTC)},
			{Key: "category", Value: nil},
			{Key: "telegram_message_id", Value: 100},
		}))
		repo := NewRepository(mt.Coll, zap.NewNop())

		rec, err := repo.FindByMessageID(context.Background(), 100)
		require.NoError(mt, err)
		require.NotNil(mt, rec)
		assert.True(mt, rec.Pending())
		require.NotNil(mt, rec.TelegramMessageID)
		assert.Equal(mt, 100, *rec.TelegramMessageID)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "find", ev.CommandName)
		assert.Equal(mt, int32(100), ev.Command.Lookup("filter", "telegram_message_id").Int32())
	})
}
