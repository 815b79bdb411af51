package models

const (
	APIKeyActive  = "active"
	APIKeyRevoked = "revoked"
)

type APIKey struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Name           string `json:"name"`
	KeyHash        string `json:"-"`
	KeyPrefix      string `json:"key_prefix"`
	Status         string `json:"status"`
	CreatedBy      string `json:"created_by"`
	LastUsedAt     *int64 `json:"last_used_at,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	RevokedAt      *int64 `json:"revoked_at,omitempty"`
}

// IssuedAPIKey is returned by create and regenerate only; Key is never
// persisted in plain text.
type IssuedAPIKey struct {
	APIKey
	Key string `json:"key"`
}
