package service

import (
	"context"
	"errors"
	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/events"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/validator"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"time"

	"github.com/google/uuid"
)

// RoomsGateway is the bookings-side view of the rooms service.
// Implemented by client.RoomsClient; mocked in tests.
type RoomsGateway interface {
	ConfirmAvailability(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error
	Release(ctx context.Context, roomID, bookingID, requestID string) error
	Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error)
}

type BookingService interface {
	Create(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error)
	Cancel(ctx context.Context, userID, bookingID, requestKey string) (*model.Booking, error)
	Get(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	List(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	cfg         *config.Config
	bookingRepo repository.BookingRepository
	requestRepo repository.RequestRecordRepository
	validator   *validator.BookingValidator
	rooms       RoomsGateway
	publisher   events.Publisher
}

func NewBookingService(
	cfg *config.Config,
	bookingRepo repository.BookingRepository,
	requestRepo repository.RequestRecordRepository,
	bookingValidator *validator.BookingValidator,
	rooms RoomsGateway,
	publisher events.Publisher,
) BookingService {
	return &bookingService{
		cfg:         cfg,
		bookingRepo: bookingRepo,
		requestRepo: requestRepo,
		validator:   bookingValidator,
		rooms:       rooms,
		publisher:   publisher,
	}
}

// Create runs the booking handshake:
//
//  1. claim the request key, so a replayed request cannot book twice
//  2. write the booking as PENDING
//  3. ask the rooms service to reserve the period
//  4. on success flip to CONFIRMED; on any failure flip to CANCELLED
//     with the reason, so a PENDING row never outlives its create call
//
// A booking row therefore exists for every attempt that got as far as
// step 2, whatever happened afterwards.
func (s *bookingService) Create(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}
	if requestKey == "" {
		return nil, apperrors.InvalidInput("Request key is required")
	}

	start, end, err := s.validator.ValidateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	roomID := req.RoomID
	if req.AutoSelect && roomID == "" {
		roomID, err = s.pickRoom(ctx, start, end)
		if err != nil {
			return nil, err
		}
	}

	booking := &model.Booking{
		UID:       uuid.NewString(),
		UserID:    userID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		Status:    config.Pending,
	}
	if err := s.validator.ValidateBooking(booking); err != nil {
		return nil, err
	}

	if err := s.requestRepo.Claim(ctx, requestKey); err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicateKey) {
			return nil, apperrors.Conflict("This request was already processed")
		}
		return nil, apperrors.Internal("Failed to record request", err)
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	confirmReq := &model.ConfirmAvailabilityRequest{
		StartDate:  start,
		EndDate:    end,
		BookingID:  booking.ID,
		RequestKey: requestKey,
	}

	reserveErr := s.rooms.ConfirmAvailability(ctx, roomID, confirmReq, requestKey)
	if reserveErr != nil {
		return nil, s.handleReserveFailure(ctx, booking, requestKey, reserveErr)
	}

	confirmed, err := s.bookingRepo.UpdateStatus(ctx, booking.ID, []string{config.Pending}, config.Confirmed, "")
	if err != nil {
		// The reservation is held but the local flip failed. Leave it
		// PENDING rather than releasing a reservation we may still own.
		s.cfg.Log.Error("Failed to confirm booking after successful reservation",
			"booking_id", booking.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to confirm booking", err)
	}

	s.publisher.BookingConfirmed(ctx, confirmed, requestKey)
	s.cfg.Log.Info("Booking confirmed",
		"booking_id", confirmed.ID,
		"booking_uid", confirmed.UID,
		"room_id", confirmed.RoomID,
		"user_id", userID,
	)
	return confirmed, nil
}

// handleReserveFailure compensates a PENDING booking after the reserve
// step failed: the booking is force-transitioned to CANCELLED with the
// failure reason on record, so no PENDING row outlives its create call.
// For indeterminate failures (timeouts, 5xx, credential trouble) the
// remote reservation may actually exist, so a best-effort release runs
// first; release is idempotent on the rooms side, and if it fails too
// the reservation stays addressable by this booking id.
func (s *bookingService) handleReserveFailure(ctx context.Context, booking *model.Booking, requestKey string, reserveErr error) error {
	appErr := apperrors.AsAppError(reserveErr)

	definitive := appErr.Code == apperrors.CodeNotFound || appErr.Code == apperrors.CodeConflict
	if !definitive {
		if err := s.rooms.Release(ctx, booking.RoomID, booking.ID, requestKey); err != nil {
			s.cfg.Log.Warn("Best-effort release failed during compensation",
				"booking_id", booking.ID,
				"room_id", booking.RoomID,
				"error", err,
			)
		}
	}

	cancelled, err := s.bookingRepo.UpdateStatus(ctx,
		booking.ID, []string{config.Pending}, config.Cancelled, appErr.Message)
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking after reservation failure",
			"booking_id", booking.ID,
			"error", err,
		)
		return appErr
	}

	s.publisher.BookingCancelled(ctx, cancelled, requestKey)
	s.cfg.Log.Info("Booking cancelled after reservation failure",
		"booking_id", booking.ID,
		"reason", appErr.Message,
	)
	return appErr
}

// Cancel releases the room first and flips the status second. If the
// release fails the booking keeps its status so a retry repeats the
// whole sequence; release itself is idempotent on the rooms side.
func (s *bookingService) Cancel(ctx context.Context, userID, bookingID, requestKey string) (*model.Booking, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == config.Cancelled {
		return booking, nil
	}

	if err := s.rooms.Release(ctx, booking.RoomID, booking.ID, requestKey); err != nil {
		appErr := apperrors.AsAppError(err)
		if appErr.Code == apperrors.CodeNotFound {
			// The room is gone; there is nothing left to release.
			s.cfg.Log.Warn("Room missing during release, continuing cancellation",
				"booking_id", booking.ID,
				"room_id", booking.RoomID,
			)
		} else {
			return nil, appErr
		}
	}

	cancelled, err := s.bookingRepo.UpdateStatus(ctx,
		booking.ID, []string{config.Pending, config.Confirmed}, config.Cancelled, "")
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			// Lost a race with another cancel; surface the final state.
			current, findErr := s.bookingRepo.FindByID(ctx, booking.ID)
			if findErr == nil && current.Status == config.Cancelled {
				return current, nil
			}
		}
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.publisher.BookingCancelled(ctx, cancelled, requestKey)
	s.cfg.Log.Info("Booking cancelled",
		"booking_id", cancelled.ID,
		"user_id", userID,
	)
	return cancelled, nil
}

func (s *bookingService) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	return s.ownedBooking(ctx, userID, bookingID)
}

func (s *bookingService) List(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("User identity is required")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.bookingRepo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}

	total, err := s.bookingRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, total, nil
}

// ownedBooking loads a booking and enforces ownership. A booking that
// belongs to someone else reads as not found, never as forbidden, so
// booking ids cannot be probed.
func (s *bookingService) ownedBooking(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}

	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		return nil, apperrors.Internal("Failed to load booking", err)
	}

	if booking.UserID != userID {
		return nil, apperrors.NotFoundWithID("Booking", bookingID)
	}

	return booking, nil
}

func (s *bookingService) pickRoom(ctx context.Context, start, end time.Time) (string, error) {
	rooms, err := s.rooms.Recommend(ctx, start, end)
	if err != nil {
		return "", err
	}
	if len(rooms) == 0 {
		return "", apperrors.Conflict("No rooms available for the requested period")
	}
	return rooms[0].ID, nil
}
