package repository

import (
	"context"

	"campus-store/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoProductRepository solo lee el catálogo para copiar nombre/precio/imagen en la orden.
type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection("products")}
}

// FindByIDs devuelve los productos encontrados indexados por id hex. Los ids inválidos se ignoran.
func (m *MongoProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}

	out := map[string]*model.Product{}
	if len(oids) == 0 {
		return out, nil
	}

	cur, err := m.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p model.Product
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID.Hex()] = &p
	}
	return out, cur.Err()
}
