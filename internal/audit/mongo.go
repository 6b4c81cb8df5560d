package audit

import (
	"context"
	"time"

	"go-pos-store/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSink stores entries in one collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoSink(ctx context.Context, cfg *config.MongoDBConfig) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *MongoSink) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoSink) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := m.collection.InsertOne(ctx, e)
	return err
}

// History returns the latest entries for one entity, newest first.
func (m *MongoSink) History(ctx context.Context, entityID string, limit int64) ([]*Entry, error) {
	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*Entry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
