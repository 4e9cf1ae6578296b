package service

import (
	"context"
	"fmt"
	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/validator"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const testRoomID = "507f1f77bcf86cd799439011"

// memBookingRepo is an in-memory BookingRepository with the same
// status-guard semantics as the Mongo implementation.
type memBookingRepo struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*model.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*model.Booking)}
}

func (m *memBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	booking.ID = fmt.Sprintf("booking-%d", m.seq)
	booking.CreatedAt = time.Now().UTC()
	clone := *booking
	m.bookings[booking.ID] = &clone
	return nil
}

func (m *memBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (m *memBookingRepo) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memBookingRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	bookings, _ := m.FindByUser(ctx, userID, 0, 0)
	return int64(len(bookings)), nil
}

func (m *memBookingRepo) UpdateStatus(ctx context.Context, id string, allowedFrom []string, to, failReason string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	allowed := false
	for _, from := range allowedFrom {
		if booking.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, bookingserrors.ErrNotFound
	}
	booking.Status = to
	if failReason != "" {
		booking.FailReason = failReason
	}
	clone := *booking
	return &clone, nil
}

func (m *memBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type memRequestRepo struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{claimed: make(map[string]bool)}
}

func (m *memRequestRepo) Claim(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return bookingserrors.ErrDuplicateKey
	}
	m.claimed[key] = true
	return nil
}

type mockGateway struct {
	confirmFunc   func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error
	releaseFunc   func(ctx context.Context, roomID, bookingID, requestID string) error
	recommendFunc func(ctx context.Context, start, end time.Time) ([]*model.Room, error)
}

func (m *mockGateway) ConfirmAvailability(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
	return m.confirmFunc(ctx, roomID, req, requestID)
}

func (m *mockGateway) Release(ctx context.Context, roomID, bookingID, requestID string) error {
	return m.releaseFunc(ctx, roomID, bookingID, requestID)
}

func (m *mockGateway) Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	return m.recommendFunc(ctx, start, end)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (p *recordingPublisher) BookingConfirmed(ctx context.Context, b *model.Booking, requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, b.ID)
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, b *model.Booking, requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       BookingService
	bookings  *memBookingRepo
	requests  *memRequestRepo
	gateway   *mockGateway
	publisher *recordingPublisher
}

func newFixture(gateway *mockGateway) *fixture {
	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "bookings-test"}),
	}
	bookings := newMemBookingRepo()
	requests := newMemRequestRepo()
	publisher := &recordingPublisher{}
	svc := NewBookingService(cfg, bookings, requests, validator.NewBookingValidator(), gateway, publisher)
	return &fixture{
		svc:       svc,
		bookings:  bookings,
		requests:  requests,
		gateway:   gateway,
		publisher: publisher,
	}
}

var _ repository.BookingRepository = (*memBookingRepo)(nil)
var _ repository.RequestRecordRepository = (*memRequestRepo)(nil)

func createRequest() *model.CreateBookingRequest {
	start := time.Now().UTC().AddDate(0, 0, 7)
	return &model.CreateBookingRequest{
		RoomID:    testRoomID,
		StartDate: start.Format(time.DateOnly),
		EndDate:   start.AddDate(0, 0, 4).Format(time.DateOnly),
	}
}

func TestCreate_ConfirmedOnSuccessfulReservation(t *testing.T) {
	var gotReq *model.ConfirmAvailabilityRequest
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			gotReq = req
			return nil
		},
	})

	booking, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if booking.Status != config.Confirmed {
		t.Errorf("expected CONFIRMED, got %s", booking.Status)
	}
	if booking.UID == "" {
		t.Error("expected a booking UID")
	}
	if gotReq == nil || gotReq.BookingID != booking.ID {
		t.Errorf("reservation must carry the booking id, got %+v", gotReq)
	}
	if gotReq.RequestKey != "key-1" {
		t.Errorf("reservation must carry the request key, got %s", gotReq.RequestKey)
	}
	if len(f.publisher.confirmed) != 1 {
		t.Errorf("expected one confirmed event, got %d", len(f.publisher.confirmed))
	}
}

func TestCreate_ConflictCancelsBookingWithReason(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return apperrors.Conflict("Room is not available for the requested period")
		},
	})

	_, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	stored, findErr := f.bookings.FindByID(context.Background(), "booking-1")
	if findErr != nil {
		t.Fatalf("booking record must survive the rejection: %v", findErr)
	}
	if stored.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
	if stored.FailReason == "" {
		t.Error("expected a fail reason on the cancelled booking")
	}
	if len(f.publisher.cancelled) != 1 {
		t.Errorf("expected one cancelled event, got %d", len(f.publisher.cancelled))
	}
}

func TestCreate_MissingRoomCancelsBooking(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return apperrors.NotFound("Room")
		},
	})

	_, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	stored, _ := f.bookings.FindByID(context.Background(), "booking-1")
	if stored.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
}

// An indeterminate failure compensates too, after a best-effort
// release in case the remote reservation actually went through. The
// caller sees SERVICE_UNAVAILABLE so "try later" stays distinguishable
// from "resource taken".
func TestCreate_UnavailableCompensatesAfterRelease(t *testing.T) {
	released := false
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return apperrors.Unavailable("rooms service")
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			released = true
			return nil
		},
	})

	_, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}

	if !released {
		t.Error("expected a best-effort release before compensation")
	}
	stored, _ := f.bookings.FindByID(context.Background(), "booking-1")
	if stored.Status != config.Cancelled {
		t.Errorf("no PENDING row may survive a failed create, got %s", stored.Status)
	}
	if len(f.publisher.cancelled) != 1 {
		t.Errorf("expected one cancelled event, got %d", len(f.publisher.cancelled))
	}
}

// A dead rooms service cannot block compensation: even when the
// best-effort release fails, the booking still ends CANCELLED.
func TestCreate_CompensatesWhenReleaseAlsoFails(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return apperrors.Unavailable("rooms service")
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			return apperrors.Unavailable("rooms service")
		},
	})

	_, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}

	stored, _ := f.bookings.FindByID(context.Background(), "booking-1")
	if stored.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
}

func TestCreate_DuplicateRequestKeyRejected(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
	})

	if _, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Fatalf("expected CONFLICT for a replayed key, got %v", err)
	}

	count, _ := f.bookings.CountByUser(context.Background(), "user-1")
	if count != 1 {
		t.Errorf("expected exactly one booking, got %d", count)
	}
}

func TestCreate_AutoSelectPicksRecommendedRoom(t *testing.T) {
	var reservedRoom string
	f := newFixture(&mockGateway{
		recommendFunc: func(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
			return []*model.Room{
				{ID: testRoomID, Number: "101", Available: true},
				{ID: "507f1f77bcf86cd799439012", Number: "102", Available: true},
			}, nil
		},
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			reservedRoom = roomID
			return nil
		},
	})

	req := createRequest()
	req.RoomID = ""
	req.AutoSelect = true

	booking, err := f.svc.Create(context.Background(), "user-1", req, "key-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if reservedRoom != testRoomID {
		t.Errorf("expected the top recommendation %s, got %s", testRoomID, reservedRoom)
	}
	if booking.RoomID != testRoomID {
		t.Errorf("expected booking on %s, got %s", testRoomID, booking.RoomID)
	}
}

func TestCreate_AutoSelectNoRoomsAvailable(t *testing.T) {
	f := newFixture(&mockGateway{
		recommendFunc: func(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
			return nil, nil
		},
	})

	req := createRequest()
	req.RoomID = ""
	req.AutoSelect = true

	_, err := f.svc.Create(context.Background(), "user-1", req, "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	count, _ := f.bookings.CountByUser(context.Background(), "user-1")
	if count != 0 {
		t.Errorf("no booking should be written when no room is available, got %d", count)
	}
}

func TestCreate_PastStartDateWritesNothing(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			t.Error("reserve must not run for an invalid period")
			return nil
		},
	})

	req := createRequest()
	req.StartDate = time.Now().UTC().AddDate(0, 0, -1).Format(time.DateOnly)

	_, err := f.svc.Create(context.Background(), "user-1", req, "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	count, _ := f.bookings.CountByUser(context.Background(), "user-1")
	if count != 0 {
		t.Errorf("no booking may be written, got %d", count)
	}
	if f.requests.claimed["key-1"] {
		t.Error("request key must not be claimed on validation failure")
	}
}

func TestCreate_RequiresUserIdentity(t *testing.T) {
	f := newFixture(&mockGateway{})

	_, err := f.svc.Create(context.Background(), "", createRequest(), "key-1")
	if apperrors.CodeOf(err) != apperrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func confirmedBooking(t *testing.T, f *fixture) *model.Booking {
	t.Helper()
	booking, err := f.svc.Create(context.Background(), "user-1", createRequest(), "key-create")
	if err != nil {
		t.Fatalf("setup create failed: %v", err)
	}
	return booking
}

func TestCancel_ReleasesRoomAndCancels(t *testing.T) {
	released := false
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			released = true
			return nil
		},
	})

	booking := confirmedBooking(t, f)

	cancelled, err := f.svc.Cancel(context.Background(), "user-1", booking.ID, "key-cancel")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !released {
		t.Error("expected the room reservation to be released")
	}
	if cancelled.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
}

func TestCancel_AlreadyCancelledIsIdempotent(t *testing.T) {
	releases := 0
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			releases++
			return nil
		},
	})

	booking := confirmedBooking(t, f)

	if _, err := f.svc.Cancel(context.Background(), "user-1", booking.ID, "key-c1"); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	again, err := f.svc.Cancel(context.Background(), "user-1", booking.ID, "key-c2")
	if err != nil {
		t.Fatalf("second cancel must succeed, got %v", err)
	}
	if again.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", again.Status)
	}
	if releases != 1 {
		t.Errorf("expected one release call, got %d", releases)
	}
}

func TestCancel_ReleaseFailureKeepsStatus(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			return apperrors.Unavailable("rooms service")
		},
	})

	booking := confirmedBooking(t, f)

	_, err := f.svc.Cancel(context.Background(), "user-1", booking.ID, "key-cancel")
	if apperrors.CodeOf(err) != apperrors.CodeUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}

	stored, _ := f.bookings.FindByID(context.Background(), booking.ID)
	if stored.Status != config.Confirmed {
		t.Errorf("status must be untouched after a failed release, got %s", stored.Status)
	}
}

// A vanished room cannot block cancellation; there is nothing left to
// release.
func TestCancel_MissingRoomStillCancels(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			return apperrors.NotFound("Room")
		},
	})

	booking := confirmedBooking(t, f)

	cancelled, err := f.svc.Cancel(context.Background(), "user-1", booking.ID, "key-cancel")
	if err != nil {
		t.Fatalf("cancel must proceed when the room is gone, got %v", err)
	}
	if cancelled.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
}

func TestCancel_ForeignBookingReadsAsNotFound(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
		releaseFunc: func(ctx context.Context, roomID, bookingID, requestID string) error {
			t.Error("release must not run for a foreign booking")
			return nil
		},
	})

	booking := confirmedBooking(t, f)

	_, err := f.svc.Cancel(context.Background(), "user-2", booking.ID, "key-cancel")
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGet_ForeignBookingReadsAsNotFound(t *testing.T) {
	f := newFixture(&mockGateway{
		confirmFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
			return nil
		},
	})

	booking := confirmedBooking(t, f)

	if _, err := f.svc.Get(context.Background(), "user-1", booking.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	_, err := f.svc.Get(context.Background(), "user-2", booking.ID)
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
