package model

import (
	"encoding/json"
	"time"
)

// Gender enumerates the accepted values of users.user_gender.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// Subscription enumerates the subscription tiers.
type Subscription string

const (
	SubscriptionFree       Subscription = "FREE"
	SubscriptionPro        Subscription = "PRO"
	SubscriptionEnterprise Subscription = "ENTERPRISE"
)

// Valid reports whether s is one of the known tiers.
func (s Subscription) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionPro, SubscriptionEnterprise:
		return true
	}
	return false
}

// User mirrors the `users` table. Profile attributes are optional and stay
// nil until set through an update or the user_info endpoint.
type User struct {
	ID           string          `json:"id"`                          // users.id (UUID)
	Username     string          `json:"username"`                    // users.username (unique)
	Name         string          `json:"name"`                        // users.name
	Surname      string          `json:"surname"`                     // users.surname
	Email        string          `json:"email"`                       // users.email (unique, lower-case)
	PasswordHash string          `json:"-"`                           // users.password_hash (bcrypt)
	Gender       *Gender         `json:"user_gender,omitempty"`       // users.user_gender
	Birthday     *time.Time      `json:"user_birthday,omitempty"`     // users.user_birthday
	Preferences  json.RawMessage `json:"user_preferences,omitempty"`  // users.user_preferences (JSON object)
	Avatar       *string         `json:"user_avatar,omitempty"`       // users.user_avatar
	Weight       *float64        `json:"user_weight,omitempty"`       // users.user_weight
	Height       *float64        `json:"user_height,omitempty"`       // users.user_height
	Subscription *Subscription   `json:"user_subscription,omitempty"` // users.user_subscription
	CreatedAt    time.Time       `json:"created_at"`                  // users.created_at
	UpdatedAt    time.Time       `json:"updated_at"`                  // users.updated_at
}

// RefreshToken models a row in `refresh_tokens`. The signed token is stored
// as issued so an unexpired one can be handed back on the next login; its
// width grows with the email, so lookups go through TokenHash.
type RefreshToken struct {
	ID        string    // refresh_tokens.id
	UserID    string    // refresh_tokens.user_id (cascade on user delete)
	Token     string    // refresh_tokens.token
	TokenHash string    // refresh_tokens.token_hash (unique, SHA-256 hex)
	CreatedAt time.Time // refresh_tokens.created_at
	UpdatedAt time.Time // refresh_tokens.updated_at
}

// BlacklistedToken models a row in `blacklisted_tokens`. Rows are only ever
// inserted and outlive the user; a token present here is rejected forever.
type BlacklistedToken struct {
	ID        string    // blacklisted_tokens.id
	UserID    string    // blacklisted_tokens.user_id (no foreign key)
	TokenHash string    // blacklisted_tokens.token_hash (unique, SHA-256 hex)
	CreatedAt time.Time // blacklisted_tokens.created_at
	UpdatedAt time.Time // blacklisted_tokens.updated_at
}
