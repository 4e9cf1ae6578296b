package model

import "time"

// Room is owned by the rooms service. Available is the operational
// flag, independent of date-based reservations. TimesBooked is a
// fairness counter used only for ranking recommendations.
type Room struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Number      string    `json:"number" bson:"number" validate:"required,min=1,max=20"`
	Available   bool      `json:"available" bson:"available"`
	TimesBooked int64     `json:"times_booked" bson:"times_booked"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
