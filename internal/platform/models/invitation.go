package models

const (
	InvitationPending = "pending"
	InvitationActive  = "active"
	InvitationRevoked = "revoked"
)

// Invitation grants an email membership of a team through one of its app
// subscriptions. The subscription member list is the set of invitations.
type Invitation struct {
	ID             string `json:"id"`
	TeamID         string `json:"team_id"`
	SubscriptionID string `json:"subscription_id"`
	AppCode        string `json:"app_code"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	InvitedBy      string `json:"invited_by"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`

	Team *Team `json:"team,omitempty"`
}

type PublicInvite struct {
	Token          string `json:"token"`
	SubscriptionID string `json:"subscription_id"`
	Role           string `json:"role"`
	ExpiresAt      int64  `json:"expires_at"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      int64  `json:"created_at"`
}
