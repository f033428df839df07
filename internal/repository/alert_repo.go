package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/model"
)

// AlertRepo handles MongoDB operations for crisis alerts
type AlertRepo interface {
	// InsertIfAbsent stores alert unless one already exists for its turn key.
	// It returns the stored alert and whether this call created it.
	InsertIfAbsent(ctx context.Context, alert *model.Alert) (*model.Alert, bool, error)
	GetByID(ctx context.Context, id string) (*model.Alert, error)
	GetByTurnKey(ctx context.Context, turnKey string) (*model.Alert, error)
	ListOpen(ctx context.Context, limit int64) ([]*model.Alert, error)
	Acknowledge(ctx context.Context, id, professionalID string, at time.Time) (*model.Alert, error)
}

type alertRepo struct {
	collection *mongo.Collection
}

// NewAlertRepo creates a new alert repository
func NewAlertRepo(db *mongo.Database) AlertRepo {
	return &alertRepo{
		collection: db.Collection("crisis_alerts"),
	}
}

// EnsureAlertIndexes creates the unique turn-key index InsertIfAbsent relies on
func EnsureAlertIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("crisis_alerts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "turnKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *alertRepo) InsertIfAbsent(ctx context.Context, alert *model.Alert) (*model.Alert, bool, error) {
	opts := options.Update().SetUpsert(true)
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"turnKey": alert.TurnKey},
		bson.M{"$setOnInsert": alert},
		opts,
	)
	if err != nil {
		return nil, false, err
	}
	if res.UpsertedCount == 1 {
		return alert, true, nil
	}

	var existing model.Alert
	if err := r.collection.FindOne(ctx, bson.M{"turnKey": alert.TurnKey}).Decode(&existing); err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *alertRepo) GetByID(ctx context.Context, id string) (*model.Alert, error) {
	var alert model.Alert
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepo) GetByTurnKey(ctx context.Context, turnKey string) (*model.Alert, error) {
	var alert model.Alert
	err := r.collection.FindOne(ctx, bson.M{"turnKey": turnKey}).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepo) ListOpen(ctx context.Context, limit int64) ([]*model.Alert, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"acknowledged": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []*model.Alert
	if err = cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepo) Acknowledge(ctx context.Context, id, professionalID string, at time.Time) (*model.Alert, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"acknowledged":   true,
		"acknowledgedBy": professionalID,
		"acknowledgedAt": at,
	}}

	var alert model.Alert
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}
