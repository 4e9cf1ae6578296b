package model

import (
	"time"
)

// Booking is owned by the bookings service. Status moves only forward:
// PENDING -> CONFIRMED, PENDING -> CANCELLED, CONFIRMED -> CANCELLED.
// Bookings are never deleted; cancellation is a status change.
type Booking struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UID        string    `json:"uid" bson:"uid" validate:"omitempty,uuid4"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required"`
	RoomID     string    `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	StartDate  time.Time `json:"start_date" bson:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" bson:"end_date" validate:"required"`
	Status     string    `json:"status" bson:"status" validate:"omitempty,oneof=PENDING CONFIRMED CANCELLED"`
	FailReason string    `json:"fail_reason,omitempty" bson:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// CreateBookingRequest is the public create payload. Dates are
// calendar days, half-open: [start_date, end_date). A booking ending
// the day another starts does not overlap it.
type CreateBookingRequest struct {
	RoomID     string `json:"room_id"`
	AutoSelect bool   `json:"auto_select"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}
