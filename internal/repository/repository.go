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
	ErrNotFound    = errors.New("orden no encontrada")
	ErrAlreadyPaid = errors.New("la orden ya fue pagada")
)

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	o.ID = primitive.NewObjectID()
	o.IsPaid = false
	o.PaidAt = nil
	o.PaymentResult = nil
	o.IsDelivered = false
	o.DeliveredAt = nil
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err := m.col.InsertOne(ctx, o)
	return err
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrNotFound
	}

	var res model.Order
	err = m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkPaid aplica el pago en una sola operación condicionada a is_paid=false,
// así dos callbacks concurrentes no pueden pagar la misma orden dos veces.
func (m *MongoOrderRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time, result model.PaymentResult) (*model.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := bson.M{"_id": id, "is_paid": false}
	update := bson.M{
		"$set": bson.M{
			"is_paid":        true,
			"paid_at":        paidAt,
			"payment_result": result,
			"updated_at":     time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Order
	err = m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, m.missOrPaid(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkPaymentFailed registra un intento fallido. Nunca toca una orden ya pagada.
func (m *MongoOrderRepository) MarkPaymentFailed(ctx context.Context, orderID string, result model.PaymentResult) error {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrNotFound
	}

	filter := bson.M{"_id": id, "is_paid": false}
	update := bson.M{
		"$set": bson.M{
			"payment_result": result,
			"updated_at":     time.Now().UTC(),
		},
	}

	r, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return m.missOrPaid(ctx, id)
	}
	return nil
}

// SetCheckoutRequest marca como pendiente el STK push recién aceptado.
// Si el callback de ese mismo CheckoutRequestID ya llegó (p. ej. Failed) no se pisa.
func (m *MongoOrderRepository) SetCheckoutRequest(ctx context.Context, orderID, checkoutRequestID string) error {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrNotFound
	}

	filter := bson.M{
		"_id":                                id,
		"is_paid":                            false,
		"payment_result.checkout_request_id": bson.M{"$ne": checkoutRequestID},
	}
	update := bson.M{
		"$set": bson.M{
			"payment_result": model.PaymentResult{
				Status:            model.PaymentPending,
				CheckoutRequestID: checkoutRequestID,
			},
			"updated_at": time.Now().UTC(),
		},
	}

	r, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if r.MatchedCount > 0 {
		return nil
	}

	if err := m.missOrPaid(ctx, id); !errors.Is(err, ErrAlreadyPaid) {
		return err
	}
	paid, err := m.col.CountDocuments(ctx, bson.M{"_id": id, "is_paid": true})
	if err != nil {
		return err
	}
	if paid > 0 {
		return ErrAlreadyPaid
	}
	// El callback de este intento ya está registrado.
	return nil
}

func (m *MongoOrderRepository) MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) (*model.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"is_delivered": true,
			"delivered_at": deliveredAt,
			"updated_at":   time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Order
	err = m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"user_id": userID})
}

func (m *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

// missOrPaid distingue entre "no existe" y "ya estaba pagada" cuando el filtro no matchea.
func (m *MongoOrderRepository) missOrPaid(ctx context.Context, id primitive.ObjectID) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyPaid
}
