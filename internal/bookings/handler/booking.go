package handler

import (
	"encoding/json"
	"net/http"
	"roomly/internal/bookings/service"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	apphttp "roomly/pkg/http"
	"roomly/pkg/middleware"
	"roomly/pkg/model"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

// BookingHandler exposes the public booking API. The gateway injects
// the authenticated user id; requests without one are rejected before
// any business logic runs. The request id doubles as the idempotency
// key for the whole create handshake.
type BookingHandler struct {
	cfg     *config.Config
	service service.BookingService
}

func NewBookingHandler(cfg *config.Config, service service.BookingService) *BookingHandler {
	return &BookingHandler{
		cfg:     cfg,
		service: service,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/id/:id", h.Get)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = apphttp.WriteError(w, r, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}

	requestKey := middleware.RequestIDFrom(r.Context())
	booking, err := h.service.Create(r.Context(), userID, &req, requestKey)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteCreated(w, booking)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.Get(r.Context(), userID, ps.ByName("id"))
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, booking)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)

	bookings, total, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WritePaginated(w, bookings, total, config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	requestKey := middleware.RequestIDFrom(r.Context())
	booking, err := h.service.Cancel(r.Context(), userID, ps.ByName("id"), requestKey)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, booking)
}

func (h *BookingHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(middleware.HeaderUserID)
	if userID == "" {
		_ = apphttp.WriteError(w, r, apperrors.Unauthorized("User identity header is missing"))
		return "", false
	}
	return userID, true
}
