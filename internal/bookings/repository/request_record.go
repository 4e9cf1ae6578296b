package repository

import (
	"context"
	"fmt"
	bookingserrors "roomly/internal/bookings/errors"
	"roomly/pkg/config"
	"roomly/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RequestRecordsCollection = "Request_records"
)

// RequestRecordRepository is the idempotency guard for booking creation.
// Claiming a key inserts a document whose _id is the key itself, so the
// primary key index decides the race: exactly one caller wins, every
// replay gets ErrDuplicateKey.
type RequestRecordRepository interface {
	Claim(ctx context.Context, key string) error
}

type mongoRequestRecordRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRequestRecordRepository(cfg *config.Config) RequestRecordRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRequestRecordRepository{
		cfg:        cfg,
		collection: db.Collection(RequestRecordsCollection),
	}
}

func (r *mongoRequestRecordRepository) Claim(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	record := &model.RequestRecord{
		Key:       key,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateKey
		}
		return fmt.Errorf("failed to claim request key: %w", err)
	}

	return nil
}
