package models

import (
	"encoding/json"
	"time"
)

// Record is one pending transfer held by the exchange store.
type Record struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"` // opaque snapshot of the sender's state
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// Expired reports whether the record is no longer redeemable at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
