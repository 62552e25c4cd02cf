package repository

import (
	"context"
	"errors"
	"time"

	"campus-store/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrReviewExists   = errors.New("la orden ya tiene una reseña")
	ErrReviewNotFound = errors.New("reseña no encontrada")
)

type MongoReviewRepository struct {
	col *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) *MongoReviewRepository {
	return &MongoReviewRepository{col: db.Collection("reviews")}
}

// EnsureIndexes crea el índice único sobre order_id: una reseña por orden.
func (m *MongoReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoReviewRepository) Create(ctx context.Context, r *model.Review) error {
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()

	_, err := m.col.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return ErrReviewExists
	}
	return err
}

func (m *MongoReviewRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Review, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrReviewNotFound
	}

	var res model.Review
	err = m.col.FindOne(ctx, bson.M{"order_id": id}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
