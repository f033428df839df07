package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/model"
)

// PredictionRepo stores scoring events and cluster transitions
type PredictionRepo interface {
	Save(ctx context.Context, record *model.PredictionRecord) error
	AttachTransition(ctx context.Context, recordID string, t *model.ClusterTransition) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.PredictionRecord, error)
	SaveTransition(ctx context.Context, t *model.ClusterTransition) error
	ListTransitions(ctx context.Context, userID string) ([]*model.ClusterTransition, error)
}

type predictionRepo struct {
	predictions *mongo.Collection
	transitions *mongo.Collection
}

// NewPredictionRepo creates a new prediction repository
func NewPredictionRepo(db *mongo.Database) PredictionRepo {
	return &predictionRepo{
		predictions: db.Collection("predictions"),
		transitions: db.Collection("cluster_transitions"),
	}
}

func (r *predictionRepo) Save(ctx context.Context, record *model.PredictionRecord) error {
	_, err := r.predictions.InsertOne(ctx, record)
	return err
}

func (r *predictionRepo) AttachTransition(ctx context.Context, recordID string, t *model.ClusterTransition) error {
	_, err := r.predictions.UpdateOne(ctx,
		bson.M{"_id": recordID},
		bson.M{"$set": bson.M{"transition": t}},
	)
	return err
}

func (r *predictionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.PredictionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.predictions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.PredictionRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *predictionRepo) SaveTransition(ctx context.Context, t *model.ClusterTransition) error {
	_, err := r.transitions.InsertOne(ctx, t)
	return err
}

func (r *predictionRepo) ListTransitions(ctx context.Context, userID string) ([]*model.ClusterTransition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}})
	cursor, err := r.transitions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transitions []*model.ClusterTransition
	if err = cursor.All(ctx, &transitions); err != nil {
		return nil, err
	}
	return transitions, nil
}
