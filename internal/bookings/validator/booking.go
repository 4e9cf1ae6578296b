package validator

import (
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"time"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() *BookingValidator {
	return &BookingValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateCreateRequest checks the public create payload and returns
// the parsed stay period. Dates are calendar days in UTC; the period is
// half-open and must start no earlier than today.
func (v *BookingValidator) ValidateCreateRequest(req *model.CreateBookingRequest) (time.Time, time.Time, error) {
	if req.RoomID == "" && !req.AutoSelect {
		return time.Time{}, time.Time{}, apperrors.Validation(
			"Either room_id or auto_select must be provided",
			map[string]any{"room_id": "required unless auto_select is true"},
		)
	}

	start, err := time.ParseInLocation(time.DateOnly, req.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("start_date must be a date in YYYY-MM-DD format")
	}
	end, err := time.ParseInLocation(time.DateOnly, req.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("end_date must be a date in YYYY-MM-DD format")
	}

	details := map[string]any{}
	if !start.Before(end) {
		details["end_date"] = "must be after start_date"
	}
	if start.Before(today()) {
		details["start_date"] = "must not be in the past"
	}
	if len(details) > 0 {
		return time.Time{}, time.Time{}, apperrors.Validation("Invalid stay period", details)
	}

	return start, end, nil
}

// ValidateBooking runs the struct tags over a fully assembled booking
// before it is persisted.
func (v *BookingValidator) ValidateBooking(booking *model.Booking) error {
	err := v.validate.Struct(booking)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Internal("Booking validation failed", err)
	}

	details := make(map[string]any, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}

	return apperrors.Validation("Booking failed validation", details)
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
