package model

import "time"

// RoomReservation is a date-range claim on a room. For a fixed room no
// two reservations may overlap, and a request key creates at most one
// reservation ever. Removed only by a release addressed to its owning
// booking id.
type RoomReservation struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	RoomID     string    `json:"room_id" bson:"room_id"`
	StartDate  time.Time `json:"start_date" bson:"start_date"`
	EndDate    time.Time `json:"end_date" bson:"end_date"`
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	RequestKey string    `json:"request_key" bson:"request_key"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// ConfirmAvailabilityRequest is the internal reserve payload sent from
// the bookings service; the request key is the same one the end-user
// call carried, so replays at any layer collapse to one reservation.
type ConfirmAvailabilityRequest struct {
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	BookingID  string    `json:"booking_id"`
	RequestKey string    `json:"request_key"`
}
