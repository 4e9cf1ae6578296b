package repository

import (
	"context"
	"errors"
	"fmt"
	"roomly/pkg/config"
	"roomly/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ReservationsCollection = "Room_reservations"
)

type ReservationRepository interface {
	Insert(ctx context.Context, reservation *model.RoomReservation) error
	FindOverlaps(ctx context.Context, roomID string, start, end time.Time) ([]*model.RoomReservation, error)
	FindByRequestKey(ctx context.Context, requestKey string) (*model.RoomReservation, error)
	FindByRoom(ctx context.Context, roomID string) ([]*model.RoomReservation, error)
	DeleteByBookingID(ctx context.Context, roomID, bookingID string) (int64, error)
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationsCollection),
	}
}

func (r *mongoReservationRepository) Insert(ctx context.Context, reservation *model.RoomReservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

// FindOverlaps returns reservations intersecting [start, end) for the
// room. End dates are exclusive, so back-to-back stays do not collide.
func (r *mongoReservationRepository) FindOverlaps(ctx context.Context, roomID string, start, end time.Time) ([]*model.RoomReservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"room_id":    roomID,
		"start_date": bson.M{"$lt": end},
		"end_date":   bson.M{"$gt": start},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.RoomReservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) FindByRequestKey(ctx context.Context, requestKey string) (*model.RoomReservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var reservation model.RoomReservation
	err := r.collection.FindOne(ctx, bson.M{"request_key": requestKey}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reservation by request key: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) FindByRoom(ctx context.Context, roomID string) ([]*model.RoomReservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.RoomReservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) DeleteByBookingID(ctx context.Context, roomID, bookingID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"room_id":    roomID,
		"booking_id": bookingID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reservations: %w", err)
	}

	return result.DeletedCount, nil
}
