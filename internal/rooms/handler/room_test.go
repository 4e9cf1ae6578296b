package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
	"roomly/pkg/token"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

const testTokenKey = "Hn3l9ZJlVd9qg7GxuOO2d4H0M8sYf1v0pSnm8AfUQ2k="

type mockRoomService struct {
	createRoomFunc    func(ctx context.Context, room *model.Room) error
	listRoomsFunc     func(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	listAvailableFunc func(ctx context.Context, start, end time.Time) ([]*model.Room, error)
	recommendFunc     func(ctx context.Context, start, end time.Time) ([]*model.Room, error)
	isFreeFunc        func(ctx context.Context, roomID string, start, end time.Time) (bool, error)
	reserveFunc       func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error
	releaseFunc       func(ctx context.Context, roomID, bookingID string) error
}

func (m *mockRoomService) CreateRoom(ctx context.Context, room *model.Room) error {
	return m.createRoomFunc(ctx, room)
}

func (m *mockRoomService) ListRooms(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	return m.listRoomsFunc(ctx, limit, offset)
}

func (m *mockRoomService) ListAvailable(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	return m.listAvailableFunc(ctx, start, end)
}

func (m *mockRoomService) Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	return m.recommendFunc(ctx, start, end)
}

func (m *mockRoomService) IsFree(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	return m.isFreeFunc(ctx, roomID, start, end)
}

func (m *mockRoomService) Reserve(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
	return m.reserveFunc(ctx, roomID, req)
}

func (m *mockRoomService) Release(ctx context.Context, roomID, bookingID string) error {
	return m.releaseFunc(ctx, roomID, bookingID)
}

func newTestRouter(svc *mockRoomService) *httprouter.Router {
	cfg := &config.Config{
		ServiceTokenKey: testTokenKey,
		Log:             logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "rooms-test"}),
	}
	router := httprouter.New()
	NewRoomHandler(cfg, svc).RegisterRoutes(router)
	return router
}

func serviceToken(t *testing.T, service string) string {
	t.Helper()
	tok, err := token.Issue(testTokenKey, service, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return tok
}

func confirmBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(model.ConfirmAvailabilityRequest{
		StartDate:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		BookingID:  "booking-1",
		RequestKey: "key-1",
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestConfirmAvailability_RequiresServiceToken(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		reserveFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
			t.Error("service must not be reached without a token")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/confirm-availability", confirmBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestConfirmAvailability_RejectsForeignService(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		reserveFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
			t.Error("service must not be reached for a disallowed caller")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/confirm-availability", confirmBody(t))
	req.Header.Set("Authorization", "Bearer "+serviceToken(t, "billing"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestConfirmAvailability_Success(t *testing.T) {
	var gotRoomID string
	router := newTestRouter(&mockRoomService{
		reserveFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
			gotRoomID = roomID
			if req.RequestKey != "key-1" {
				t.Errorf("expected request key key-1, got %s", req.RequestKey)
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/confirm-availability", confirmBody(t))
	req.Header.Set("Authorization", "Bearer "+serviceToken(t, "bookings"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotRoomID != "room-1" {
		t.Errorf("expected room-1, got %s", gotRoomID)
	}
}

func TestConfirmAvailability_ConflictMapsTo409(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		reserveFunc: func(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest) error {
			return apperrors.Conflict("Room is not available for the requested period")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/confirm-availability", confirmBody(t))
	req.Header.Set("Authorization", "Bearer "+serviceToken(t, "bookings"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid error envelope: %v", err)
	}
	if envelope["error"] != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT code, got %v", envelope["error"])
	}
}

func TestRelease_RequiresBookingID(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		releaseFunc: func(ctx context.Context, roomID, bookingID string) error {
			t.Error("service must not be reached without a booking id")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/release", nil)
	req.Header.Set("Authorization", "Bearer "+serviceToken(t, "bookings"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRelease_Success(t *testing.T) {
	var gotBookingID string
	router := newTestRouter(&mockRoomService{
		releaseFunc: func(ctx context.Context, roomID, bookingID string) error {
			gotBookingID = bookingID
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/rooms/room-1/release?bookingId=booking-1", nil)
	req.Header.Set("Authorization", "Bearer "+serviceToken(t, "bookings"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotBookingID != "booking-1" {
		t.Errorf("expected booking-1, got %s", gotBookingID)
	}
}

func TestListAvailable_RequiresPeriod(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		listAvailableFunc: func(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
			t.Error("service must not be reached without a period")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/available", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecommend_ParsesPeriod(t *testing.T) {
	router := newTestRouter(&mockRoomService{
		recommendFunc: func(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
			if got := start.Format(time.DateOnly); got != "2026-10-01" {
				t.Errorf("expected start 2026-10-01, got %s", got)
			}
			if got := end.Format(time.DateOnly); got != "2026-10-05" {
				t.Errorf("expected end 2026-10-05, got %s", got)
			}
			return []*model.Room{{ID: "a", Number: "101", Available: true}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/recommended?start=2026-10-01&end=2026-10-05", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
