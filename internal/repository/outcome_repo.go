package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/model"
)

// ErrVersionConflict is returned when an outcome changed since it was read
var ErrVersionConflict = errors.New("outcome was modified concurrently")

// OutcomeRepo handles MongoDB operations for intervention outcomes
type OutcomeRepo interface {
	Create(ctx context.Context, outcome *model.InterventionOutcome) error
	GetByID(ctx context.Context, id string) (*model.InterventionOutcome, error)
	// Update replaces the stored outcome only if its version still equals expectedVersion
	Update(ctx context.Context, outcome *model.InterventionOutcome, expectedVersion int64) error
	ListByUser(ctx context.Context, userID string) ([]*model.InterventionOutcome, error)
	StatsByIntervention(ctx context.Context) ([]*model.InterventionStats, error)
}

type outcomeRepo struct {
	collection *mongo.Collection
}

// NewOutcomeRepo creates a new outcome repository
func NewOutcomeRepo(db *mongo.Database) OutcomeRepo {
	return &outcomeRepo{
		collection: db.Collection("intervention_outcomes"),
	}
}

func (r *outcomeRepo) Create(ctx context.Context, outcome *model.InterventionOutcome) error {
	_, err := r.collection.InsertOne(ctx, outcome)
	return err
}

func (r *outcomeRepo) GetByID(ctx context.Context, id string) (*model.InterventionOutcome, error) {
	var outcome model.InterventionOutcome
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&outcome)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (r *outcomeRepo) Update(ctx context.Context, outcome *model.InterventionOutcome, expectedVersion int64) error {
	filter := bson.M{"_id": outcome.ID, "version": expectedVersion}
	res, err := r.collection.ReplaceOne(ctx, filter, outcome)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *outcomeRepo) ListByUser(ctx context.Context, userID string) ([]*model.InterventionOutcome, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var outcomes []*model.InterventionOutcome
	if err = cursor.All(ctx, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// finishedStatuses are the states an outcome reaches after post-scores were recorded
var finishedStatuses = bson.A{model.OutcomeCompleted, model.OutcomePendingReview, model.OutcomeArchived}

func countWhen(cond bson.M) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
}

func (r *outcomeRepo) StatsByIntervention(ctx context.Context) ([]*model.InterventionStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isSimulated": false}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$interventionId",
			"started":         bson.M{"$sum": 1},
			"completed":       countWhen(bson.M{"$in": bson.A{"$status", finishedStatuses}}),
			"droppedOut":      countWhen(bson.M{"$eq": bson.A{"$status", model.OutcomeDroppedOut}}),
			"metExpected":     countWhen(bson.M{"$eq": bson.A{"$metExpectedOutcome", true}}),
			"meanImprovement": bson.M{"$avg": "$overallImprovement"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []*model.InterventionStats
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
