package models

import "time"

// ResetCode is a pending password reset. Documents expire at ExpiresAt.
type ResetCode struct {
	Email     string    `bson:"email"`
	Code      string    `bson:"code"`
	Verified  bool      `bson:"verified"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"createdAt"`
}
