package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	blockederrors "nailbook/internal/blockeddates/errors"
	"nailbook/pkg/config"
	mongotx "nailbook/pkg/db/mongo"
	"nailbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Blocked_dates"
)

type BlockedDateRepository interface {
	Create(ctx context.Context, bd *model.BlockedDate) error
	FindByID(ctx context.Context, id string) (*model.BlockedDate, error)
	// FindOverlapping returns every record whose range intersects
	// [from, to]. An empty bound is open.
	FindOverlapping(ctx context.Context, from, to string) ([]*model.BlockedDate, error)
	Delete(ctx context.Context, id string) error
}

type mongoBlockedDateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBlockedDateRepository(cfg *config.Config) BlockedDateRepository {
	return &mongoBlockedDateRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoBlockedDateRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if mongotx.IsSessionContext(ctx) {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBlockedDateRepository) Create(ctx context.Context, bd *model.BlockedDate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	bd.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, bd)
	if err != nil {
		return fmt.Errorf("failed to create blocked date: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		bd.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBlockedDateRepository) FindByID(ctx context.Context, id string) (*model.BlockedDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", blockederrors.ErrInvalidID, id)
	}

	var bd model.BlockedDate
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&bd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", blockederrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find blocked date: %w", err)
	}
	return &bd, nil
}

func (r *mongoBlockedDateRepository) FindOverlapping(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if from != "" {
		filter["end_date"] = bson.M{"$gte": from}
	}
	if to != "" {
		filter["start_date"] = bson.M{"$lte": to}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocked dates: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	records := []*model.BlockedDate{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode blocked dates: %w", err)
	}
	return records, nil
}

func (r *mongoBlockedDateRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", blockederrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete blocked date: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", blockederrors.ErrNotFound, id)
	}
	return nil
}
