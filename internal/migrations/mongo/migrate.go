package mongo

import (
	"context"
	bookingsrepo "roomly/internal/bookings/repository"
	roomsrepo "roomly/internal/rooms/repository"
	"roomly/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Run creates the indexes both services depend on. Index creation is
// idempotent, so running the migration repeatedly is safe.
//
// The unique index on request_key is load-bearing: it is the last line
// of defense against a replayed reserve call writing a second
// reservation.
func Run(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	migrations := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{
			collection: roomsrepo.ReservationsCollection,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "request_key", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("uniq_request_key"),
				},
				{
					Keys: bson.D{
						{Key: "room_id", Value: 1},
						{Key: "start_date", Value: 1},
						{Key: "end_date", Value: 1},
					},
					Options: options.Index().SetName("room_period"),
				},
				{
					Keys:    bson.D{{Key: "booking_id", Value: 1}},
					Options: options.Index().SetName("booking_id"),
				},
			},
		},
		{
			collection: roomsrepo.ReservationLocksCollection,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "expires_at", Value: 1}},
					Options: options.Index().SetExpireAfterSeconds(0).SetName("lock_ttl"),
				},
			},
		},
		{
			collection: bookingsrepo.BookingsCollection,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "user_id", Value: 1},
						{Key: "created_at", Value: -1},
					},
					Options: options.Index().SetName("user_created"),
				},
				{
					Keys:    bson.D{{Key: "uid", Value: 1}},
					Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_uid"),
				},
				{
					Keys:    bson.D{{Key: "status", Value: 1}},
					Options: options.Index().SetName("status"),
				},
			},
		},
		{
			collection: roomsrepo.RoomsCollection,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "number", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("uniq_number"),
				},
			},
		},
	}

	for _, m := range migrations {
		coll := db.Collection(m.collection)
		names, err := coll.Indexes().CreateMany(ctx, m.indexes)
		if err != nil {
			return err
		}
		cfg.Log.Info("Indexes ensured", "collection", m.collection, "indexes", names)
	}

	return nil
}
