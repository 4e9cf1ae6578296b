package handler

import (
	"encoding/json"
	"net/http"
	"roomly/internal/rooms/service"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	apphttp "roomly/pkg/http"
	"roomly/pkg/middleware"
	"roomly/pkg/model"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	cfg     *config.Config
	service service.RoomService
}

func NewRoomHandler(cfg *config.Config, service service.RoomService) *RoomHandler {
	return &RoomHandler{
		cfg:     cfg,
		service: service,
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rooms", h.Create)
	router.GET("/api/v1/rooms", h.List)
	router.GET("/api/v1/rooms/available", h.ListAvailable)
	router.GET("/api/v1/rooms/recommended", h.Recommend)

	// Internal surface, reachable only with a bookings service token.
	authed := func(next httprouter.Handle) httprouter.Handle {
		return middleware.ServiceAuth(h.cfg.ServiceTokenKey, []string{"bookings"}, h.cfg.Log, next)
	}
	router.POST("/api/internal/rooms/:id/confirm-availability", authed(h.ConfirmAvailability))
	router.POST("/api/internal/rooms/:id/release", authed(h.Release))
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var room model.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		_ = apphttp.WriteError(w, r, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}

	if err := h.service.CreateRoom(r.Context(), &room); err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteCreated(w, room)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)

	rooms, total, err := h.service.ListRooms(r.Context(), limit, offset)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WritePaginated(w, rooms, total, config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset))
}

func (h *RoomHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := parsePeriod(r)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	rooms, err := h.service.ListAvailable(r.Context(), start, end)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, rooms)
}

func (h *RoomHandler) Recommend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := parsePeriod(r)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	rooms, err := h.service.Recommend(r.Context(), start, end)
	if err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, rooms)
}

func (h *RoomHandler) ConfirmAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("id")

	var req model.ConfirmAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = apphttp.WriteError(w, r, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}

	if err := h.service.Reserve(r.Context(), roomID, &req); err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, nil)
}

func (h *RoomHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("id")
	bookingID := r.URL.Query().Get("bookingId")
	if bookingID == "" {
		_ = apphttp.WriteError(w, r, apperrors.InvalidInput("bookingId query parameter is required"))
		return
	}

	if err := h.service.Release(r.Context(), roomID, bookingID); err != nil {
		_ = apphttp.WriteError(w, r, err)
		return
	}

	_ = apphttp.WriteSuccess(w, nil)
}

func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("start and end query parameters are required")
	}

	start, err := time.ParseInLocation(time.DateOnly, startRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("start must be a date in YYYY-MM-DD format")
	}
	end, err := time.ParseInLocation(time.DateOnly, endRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("end must be a date in YYYY-MM-DD format")
	}

	return start, end, nil
}
