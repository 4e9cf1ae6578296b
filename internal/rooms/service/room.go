package service

import (
	"context"
	"errors"
	"fmt"
	roomserrors "roomly/internal/rooms/errors"
	"roomly/internal/rooms/repository"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	reservationLockPrefix = "room_reserve_"
	reservationLockTTL    = 30 * time.Second
)

type RoomService interface {
	CreateRoom(ctx context.Context, room *model.Room) error
	ListRooms(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	ListAvailable(ctx context.Context, start, end time.Time) ([]*model.Room, error)
	Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error)
	IsFree(ctx context.Context, roomID string, start, end time.Time) (bool, error)
	Reserve(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error
	Release(ctx context.Context, roomID, bookingID string) error
}

type roomService struct {
	cfg      *config.Config
	roomRepo repository.RoomRepository
	resRepo  repository.ReservationRepository
	lockRepo repository.ReservationLockRepository
}

func NewRoomService(
	cfg *config.Config,
	roomRepo repository.RoomRepository,
	resRepo repository.ReservationRepository,
	lockRepo repository.ReservationLockRepository,
) RoomService {
	return &roomService{
		cfg:      cfg,
		roomRepo: roomRepo,
		resRepo:  resRepo,
		lockRepo: lockRepo,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, room *model.Room) error {
	if room.Number == "" {
		return apperrors.InvalidInput("Room number is required")
	}
	room.TimesBooked = 0

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return apperrors.Internal("Failed to create room", err)
	}

	s.cfg.Log.Info("Room created", "room_id", room.ID, "number", room.Number)
	return nil
}

func (s *roomService) ListRooms(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	rooms, err := s.roomRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list rooms", err)
	}

	total, err := s.roomRepo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count rooms", err)
	}

	return rooms, total, nil
}

// ListAvailable returns operational rooms with no reservation
// intersecting [start, end).
func (s *roomService) ListAvailable(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	rooms, err := s.roomRepo.FindAvailable(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list available rooms", err)
	}

	free := make([]*model.Room, 0, len(rooms))
	for _, room := range rooms {
		ok, err := s.IsFree(ctx, room.ID, start, end)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, room)
		}
	}

	return free, nil
}

// IsFree reports whether the room has no reservation intersecting
// [start, end). Advisory only; reserve re-checks under its own lock.
func (s *roomService) IsFree(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	if err := validateDateRange(start, end); err != nil {
		return false, err
	}

	overlaps, err := s.resRepo.FindOverlaps(ctx, roomID, start, end)
	if err != nil {
		return false, apperrors.Internal("Failed to check room reservations", err)
	}

	return len(overlaps) == 0, nil
}

// Recommend ranks free rooms by booking pressure so demand spreads
// across the inventory instead of piling onto the first room listed.
func (s *roomService) Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	rooms, err := s.ListAvailable(ctx, start, end)
	if err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].TimesBooked != rooms[j].TimesBooked {
			return rooms[i].TimesBooked < rooms[j].TimesBooked
		}
		return rooms[i].ID < rooms[j].ID
	})

	return rooms, nil
}

// Reserve atomically claims [start, end) on a room for a booking. The
// per-room lock serializes concurrent attempts; inside the transaction
// the request key is checked first so a replayed call succeeds without
// writing a second reservation.
func (s *roomService) Reserve(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
	if req.BookingID == "" {
		return apperrors.InvalidInput("Booking ID is required")
	}
	if req.RequestKey == "" {
		return apperrors.InvalidInput("Request key is required")
	}
	if err := validateDateRange(req.StartDate, req.EndDate); err != nil {
		return err
	}

	lockID := reservationLockPrefix + roomID
	if err := s.acquireLock(ctx, lockID); err != nil {
		return err
	}
	defer s.releaseLock(lockID)

	err := s.roomRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.resRepo.FindByRequestKey(sessCtx, req.RequestKey)
		if err != nil {
			return apperrors.Internal("Failed to check request key", err)
		}
		if existing != nil {
			s.cfg.Log.Info("Duplicate reserve request, returning prior outcome",
				"room_id", roomID,
				"booking_id", req.BookingID,
				"request_key", req.RequestKey,
			)
			return nil
		}

		room, err := s.roomRepo.FindByID(sessCtx, roomID)
		if err != nil {
			if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
				return apperrors.NotFoundWithID("Room", roomID)
			}
			return apperrors.Internal("Failed to load room", err)
		}
		if !room.Available {
			return apperrors.Conflict("Room is not operational")
		}

		overlaps, err := s.resRepo.FindOverlaps(sessCtx, roomID, req.StartDate, req.EndDate)
		if err != nil {
			return apperrors.Internal("Failed to check overlapping reservations", err)
		}
		if len(overlaps) > 0 {
			return apperrors.Conflict("Room is not available for the requested period")
		}

		reservation := &model.RoomReservation{
			RoomID:     roomID,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			BookingID:  req.BookingID,
			RequestKey: req.RequestKey,
		}
		if err := s.resRepo.Insert(sessCtx, reservation); err != nil {
			// The unique index on request_key closes the race with a
			// replay that slipped past the read above.
			if mongo.IsDuplicateKeyError(err) {
				return nil
			}
			return apperrors.Internal("Failed to insert reservation", err)
		}

		if err := s.roomRepo.IncrementTimesBooked(sessCtx, roomID); err != nil {
			return apperrors.Internal("Failed to update booking counter", err)
		}

		return nil
	})
	if err != nil {
		return apperrors.AsAppError(err)
	}

	s.cfg.Log.Info("Room reserved",
		"room_id", roomID,
		"booking_id", req.BookingID,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
	)
	return nil
}

// Release removes the reservations a booking holds on a room. Releasing
// a booking that holds nothing is a no-op success, so a retried cancel
// never fails here.
func (s *roomService) Release(ctx context.Context, roomID, bookingID string) error {
	if bookingID == "" {
		return apperrors.InvalidInput("Booking ID is required")
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID("Room", roomID)
		}
		return apperrors.Internal("Failed to load room", err)
	}

	deleted, err := s.resRepo.DeleteByBookingID(ctx, roomID, bookingID)
	if err != nil {
		return apperrors.Internal("Failed to release reservation", err)
	}

	if deleted == 0 {
		s.cfg.Log.Info("Release found nothing to remove",
			"room_id", roomID,
			"booking_id", bookingID,
		)
		return nil
	}

	s.cfg.Log.Info("Reservation released",
		"room_id", roomID,
		"booking_id", bookingID,
		"deleted", deleted,
	)
	return nil
}

func (s *roomService) acquireLock(ctx context.Context, lockID string) error {
	lock := &model.ReservationLock{
		ID:        lockID,
		ExpiresAt: time.Now().UTC().Add(reservationLockTTL),
	}
	if err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("Room is currently being reserved, please retry")
		}
		return apperrors.Internal("Failed to acquire reservation lock", err)
	}
	return nil
}

// releaseLock runs detached from the request context so a caller
// timeout cannot strand the lock until the TTL reaper fires.
func (s *roomService) releaseLock(lockID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.lockRepo.Delete(ctx, lockID); err != nil {
		s.cfg.Log.Error("Failed to release reservation lock", "lock_id", lockID, "error", err)
	}
}

func validateDateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.InvalidInput("Start and end dates are required")
	}
	if !start.Before(end) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Start date must be before end date, got start=%s end=%s",
			start.Format(time.DateOnly), end.Format(time.DateOnly),
		))
	}
	return nil
}
