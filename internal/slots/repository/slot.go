package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "nailbook/internal/slots/errors"
	"nailbook/pkg/config"
	mongotx "nailbook/pkg/db/mongo"
	"nailbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	// CreateMany inserts what it can and reports how many were new. Slots
	// that collide with an existing (resource, date, time) are skipped.
	CreateMany(ctx context.Context, slots []*model.Slot) (int, error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Slot, error)
	FindAvailableFrom(ctx context.Context, resourceID *string, fromDate string) ([]*model.Slot, error)
	Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error)
	Update(ctx context.Context, id string, expectedStatus string, updates *model.SlotUpdate) error
	// TransitionStatus moves every slot in ids whose status is one of from
	// to the target status and returns how many matched.
	TransitionStatus(ctx context.Context, ids []string, from []string, to string) (int64, error)
	Delete(ctx context.Context, id string, deletable []string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds ctx unless it already belongs to a transaction, whose
// session context must be passed through untouched.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if mongotx.IsSessionContext(ctx) {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	slot.CreatedAt = now
	slot.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s %s %s", slotserrors.ErrDuplicate, slot.ResourceID, slot.Date, slot.Time)
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, len(slots))
	for i, s := range slots {
		s.CreatedAt = now
		s.UpdatedAt = now
		docs[i] = s
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && onlyDuplicates(bulkErr) {
			return len(slots) - len(bulkErr.WriteErrors), nil
		}
		return 0, fmt.Errorf("failed to create slots: %w", err)
	}

	for i, id := range result.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok && i < len(slots) {
			slots[i].ID = oid.Hex()
		}
	}
	return len(result.InsertedIDs), nil
}

func onlyDuplicates(e mongo.BulkWriteException) bool {
	if e.WriteConcernError != nil {
		return false
	}
	for _, we := range e.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	if len(ids) == 0 {
		return []*model.Slot{}, nil
	}

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, nil)
}

func (r *mongoSlotRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"resource_id": resourceID, "date": date}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
}

func (r *mongoSlotRepository) FindAvailableFrom(ctx context.Context, resourceID *string, fromDate string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":    model.SlotStatusAvailable,
		"is_hidden": bson.M{"$ne": true},
		"date":      bson.M{"$gte": fromDate},
	}
	if resourceID != nil {
		filter["resource_id"] = *resourceID
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoSlotRepository) Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"date": date}
	if resourceID != nil {
		filter["resource_id"] = *resourceID
	}

	opts := options.Find().SetSort(bson.D{{Key: "resource_id", Value: 1}, {Key: "time", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.collection.Find(ctx, filter, opts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	slots := []*model.Slot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Update(ctx context.Context, id string, expectedStatus string, updates *model.SlotUpdate) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if updates.Status != "" {
		set["status"] = updates.Status
	}
	if updates.SlotType != "" {
		set["slot_type"] = updates.SlotType
	}
	if updates.IsHidden != nil {
		set["is_hidden"] = *updates.IsHidden
	}
	if updates.Notes != nil {
		set["notes"] = *updates.Notes
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": objectID, "status": expectedStatus}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrMismatch(ctx, objectID, id)
	}
	return nil
}

func (r *mongoSlotRepository) TransitionStatus(ctx context.Context, ids []string, from []string, to string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    bson.M{"$in": objectIDs},
		"status": bson.M{"$in": from},
	}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to transition slots to %s: %w", to, err)
	}
	return result.MatchedCount, nil
}

func (r *mongoSlotRepository) Delete(ctx context.Context, id string, deletable []string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": objectID, "status": bson.M{"$in": deletable}}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.DeletedCount == 0 {
		return r.missOrMismatch(ctx, objectID, id)
	}
	return nil
}

// missOrMismatch tells a missing slot apart from one whose status did not
// satisfy a conditional write.
func (r *mongoSlotRepository) missOrMismatch(ctx context.Context, objectID primitive.ObjectID, id string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", slotserrors.ErrStatusMismatch, id)
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
		}
		out = append(out, oid)
	}
	return out, nil
}
