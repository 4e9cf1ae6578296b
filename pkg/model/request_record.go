package model

import "time"

// RequestRecord is the dedup ledger entry behind the idempotency
// guard. The request key is the document id, so exclusivity comes from
// the storage engine's uniqueness guarantee rather than a
// check-then-insert sequence.
type RequestRecord struct {
	Key       string    `bson:"_id" json:"key"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
