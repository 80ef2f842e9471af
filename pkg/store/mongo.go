package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/models"
)

const ordersCollection = "orders"

// MongoStore is the mongo-backed OrderStore. A unique index on orderId makes
// Insert atomic under concurrent submissions of the same source transaction.
type MongoStore struct {
	client *mongo.Client
	orders *mongo.Collection
	logger logger.Logger
}

var _ OrderStore = (*MongoStore)(nil)

// NewMongoStore connects to mongo, verifies the connection, and ensures the
// unique orderId index exists.
func NewMongoStore(ctx context.Context, uri, database string, log logger.Logger) (*MongoStore, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	orders := client.Database(database).Collection(ordersCollection)
	_, err = orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orderId index: %w", err)
	}

	log.Info("Connected to mongo database %s", database)
	return &MongoStore{client: client, orders: orders, logger: log}, nil
}

// Insert persists a new order. The unique index turns a concurrent duplicate
// into a driver duplicate-key error, which maps to ErrAlreadyExists.
func (s *MongoStore) Insert(ctx context.Context, order *models.SwapOrder) error {
	_, err := s.orders.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert order %s: %w", order.OrderID, err)
	}
	return nil
}

// Get fetches an order by its order ID.
func (s *MongoStore) Get(ctx context.Context, orderID string) (*models.SwapOrder, error) {
	var order models.SwapOrder
	err := s.orders.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return &order, nil
}

// UpdateStatus moves an order to a new status.
func (s *MongoStore) UpdateStatus(ctx context.Context, orderID string, status models.Status, destTxHash, errorMessage string) error {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	if destTxHash != "" {
		set["destinationTxHash"] = destTxHash
	}
	if errorMessage != "" {
		set["errorMessage"] = errorMessage
	}

	res, err := s.orders.UpdateOne(ctx, bson.M{"orderId": orderID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects from mongo.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
