package session

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore persists session records in a MongoDB collection, one document
// per session keyed by session_id.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a store over the given collection and ensures the
// unique index on session_id that backs Create's duplicate detection.
func NewMongoStore(ctx context.Context, coll *mongo.Collection) (*MongoStore, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create session_id index: %w", err)
	}

	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) Create(ctx context.Context, record *Record) error {
	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *MongoStore) Read(ctx context.Context, sessionID string) (*Record, error) {
	var record Record
	err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &record, nil
}

func (s *MongoStore) Update(ctx context.Context, record *Record) error {
	result, err := s.coll.ReplaceOne(ctx, bson.M{"session_id": record.SessionID}, record)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *MongoStore) Healthcheck(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo healthcheck: %w", err)
	}
	return nil
}
