package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cardsCollection   = "cards"
	apiKeysCollection = "api_keys"

	// SearchByTerms consults at most this many tokens per query
	maxSearchTokens = 10
)

// Connect establishes a MongoDB connection and pings it before returning
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}

	return client.Database(dbName), closeFn, nil
}

// EnsureIndexes creates the slug and search-term indexes the card queries rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(cardsCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"slug": 1}},
		{Keys: bson.M{"searchTerms": 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create card indexes: %w", err)
	}
	return nil
}

// MongoCardStore implements CardStore on a MongoDB collection
type MongoCardStore struct {
	coll *mongo.Collection
}

// NewMongoCardStore creates a card store backed by the cards collection
func NewMongoCardStore(db *mongo.Database) *MongoCardStore {
	return &MongoCardStore{coll: db.Collection(cardsCollection)}
}

func (s *MongoCardStore) GetBySlug(ctx context.Context, slug string) (*Card, error) {
	var card Card
	err := s.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by slug: %w", err)
	}
	return &card, nil
}

func (s *MongoCardStore) GetByID(ctx context.Context, id string) (*Card, error) {
	var card Card
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by id: %w", err)
	}
	return &card, nil
}

func (s *MongoCardStore) Create(ctx context.Context, card *Card) error {
	if _, err := s.coll.InsertOne(ctx, card); err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (s *MongoCardStore) Update(ctx context.Context, card *Card) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": card.ID}, card)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no card with id %s", card.ID)
	}
	return nil
}

func (s *MongoCardStore) SearchByTerms(ctx context.Context, tokens []string, limit int) ([]Card, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > maxSearchTokens {
		tokens = tokens[:maxSearchTokens]
	}
	if limit <= 0 {
		limit = 20
	}

	cursor, err := s.coll.Find(ctx,
		bson.M{"searchTerms": bson.M{"$in": tokens}},
		options.Find().SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer cursor.Close(ctx)

	var cards []Card
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return cards, nil
}

func (s *MongoCardStore) Count(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

// MongoAPIKeyStore implements APIKeyStore on a MongoDB collection
type MongoAPIKeyStore struct {
	coll *mongo.Collection
}

// NewMongoAPIKeyStore creates an API key store backed by the api_keys collection
func NewMongoAPIKeyStore(db *mongo.Database) *MongoAPIKeyStore {
	return &MongoAPIKeyStore{coll: db.Collection(apiKeysCollection)}
}

func (s *MongoAPIKeyStore) FindByHash(ctx context.Context, hash string) (*APIKey, error) {
	var key APIKey
	err := s.coll.FindOne(ctx, bson.M{"_id": hash}).Decode(&key)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

func (s *MongoAPIKeyStore) Create(ctx context.Context, key *APIKey) error {
	if _, err := s.coll.InsertOne(ctx, key); err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (s *MongoAPIKeyStore) TouchUsage(ctx context.Context, hash string) error {
	now := time.Now()
	_, err := s.coll.UpdateByID(ctx, hash, bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"lastUsedAt": now},
	})
	if err != nil {
		return fmt.Errorf("failed to touch api key usage: %w", err)
	}
	return nil
}
