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
	"roomly/pkg/middleware"
	"roomly/pkg/model"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	createFunc func(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error)
	cancelFunc func(ctx context.Context, userID, bookingID, requestKey string) (*model.Booking, error)
	getFunc    func(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	listFunc   func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingService) Create(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
	return m.createFunc(ctx, userID, req, requestKey)
}

func (m *mockBookingService) Cancel(ctx context.Context, userID, bookingID, requestKey string) (*model.Booking, error) {
	return m.cancelFunc(ctx, userID, bookingID, requestKey)
}

func (m *mockBookingService) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	return m.getFunc(ctx, userID, bookingID)
}

func (m *mockBookingService) List(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listFunc(ctx, userID, limit, offset)
}

func newTestHandler(svc *mockBookingService) http.Handler {
	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "bookings-test"}),
	}
	router := httprouter.New()
	NewBookingHandler(cfg, svc).RegisterRoutes(router)
	// The logging middleware supplies the request id used as the
	// idempotency key.
	return middleware.RequestLogging(cfg.Log)(router)
}

func createBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(model.CreateBookingRequest{
		RoomID:    "507f1f77bcf86cd799439011",
		StartDate: "2026-10-01",
		EndDate:   "2026-10-05",
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestCreate_RequiresUserHeader(t *testing.T) {
	h := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
			t.Error("service must not be reached without a user header")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreate_PropagatesClientRequestID(t *testing.T) {
	var gotKey, gotUser string
	h := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
			gotKey = requestKey
			gotUser = userID
			return &model.Booking{ID: "booking-1", UserID: userID, Status: config.Confirmed}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "user-1")
	req.Header.Set(middleware.HeaderRequestID, "client-key-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotKey != "client-key-42" {
		t.Errorf("expected the client request id as key, got %s", gotKey)
	}
	if gotUser != "user-1" {
		t.Errorf("expected user-1, got %s", gotUser)
	}
}

func TestCreate_SynthesizesRequestKeyWhenHeaderAbsent(t *testing.T) {
	var gotKey string
	h := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
			gotKey = requestKey
			return &model.Booking{ID: "booking-1", UserID: userID, Status: config.Confirmed}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t))
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if gotKey == "" {
		t.Error("expected a synthesized request key")
	}
}

func TestCreate_ConflictMapsTo409(t *testing.T) {
	h := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, userID string, req *model.CreateBookingRequest, requestKey string) (*model.Booking, error) {
			return nil, apperrors.Conflict("Room is not available for the requested period")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t))
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

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
	if id, ok := envelope["request_id"].(string); !ok || id == "" {
		t.Error("expected a request id in the error envelope")
	}
}

func TestGet_NotFoundMapsTo404(t *testing.T) {
	h := newTestHandler(&mockBookingService{
		getFunc: func(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/missing", nil)
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancel_ReturnsBooking(t *testing.T) {
	h := newTestHandler(&mockBookingService{
		cancelFunc: func(ctx context.Context, userID, bookingID, requestKey string) (*model.Booking, error) {
			return &model.Booking{ID: bookingID, UserID: userID, Status: config.Cancelled}, nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/booking-1", nil)
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Data.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", resp.Data.Status)
	}
}

func TestList_PassesPagination(t *testing.T) {
	h := newTestHandler(&mockBookingService{
		listFunc: func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
			if limit != 5 || offset != 10 {
				t.Errorf("expected limit=5 offset=10, got %d/%d", limit, offset)
			}
			return []*model.Booking{{ID: "booking-1", UserID: userID, Status: config.Confirmed, CreatedAt: time.Now()}}, 1, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=5&offset=10", nil)
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
