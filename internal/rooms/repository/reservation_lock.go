package repository

import (
	"context"
	"fmt"
	"roomly/pkg/config"
	"roomly/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ReservationLocksCollection = "Reservation_locks"
)

// ReservationLockRepository backs the per-room advisory lock. A lock is
// a document whose _id is the lock name; inserting it either succeeds
// (lock acquired) or fails with a duplicate key (lock held). The TTL
// index on expires_at reaps locks abandoned by a crashed holder.
type ReservationLockRepository interface {
	Create(ctx context.Context, lock *model.ReservationLock) error
	Delete(ctx context.Context, id string) error
}

type mongoReservationLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationLockRepository(cfg *config.Config) ReservationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationLockRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationLocksCollection),
	}
}

func (r *mongoReservationLockRepository) Create(ctx context.Context, lock *model.ReservationLock) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		// Duplicate key errors are the contention signal; the caller
		// inspects them, so they propagate unwrapped in the chain.
		return fmt.Errorf("failed to create reservation lock: %w", err)
	}

	return nil
}

func (r *mongoReservationLockRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete reservation lock: %w", err)
	}

	return nil
}
