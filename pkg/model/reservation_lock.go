package model

import "time"

// ReservationLock is a per-room advisory lock serializing the
// check-overlap-then-insert sequence inside reserve. Two concurrent
// reserve calls on the same room contend on the same lock id; the
// loser observes a duplicate key error.
type ReservationLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
