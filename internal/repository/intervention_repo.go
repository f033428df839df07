package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/model"
)

// InterventionRepo handles MongoDB operations for intervention definitions
type InterventionRepo interface {
	GetByID(ctx context.Context, id string) (*model.Intervention, error)
	Upsert(ctx context.Context, intervention *model.Intervention) error
}

type interventionRepo struct {
	collection *mongo.Collection
}

// NewInterventionRepo creates a new intervention repository
func NewInterventionRepo(db *mongo.Database) InterventionRepo {
	return &interventionRepo{
		collection: db.Collection("interventions"),
	}
}

func (r *interventionRepo) GetByID(ctx context.Context, id string) (*model.Intervention, error) {
	var intervention model.Intervention
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&intervention)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intervention, nil
}

func (r *interventionRepo) Upsert(ctx context.Context, intervention *model.Intervention) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": intervention.ID}, intervention, opts)
	return err
}
