package models

const (
	TeamStatusActive              = "active"
	TeamStatusSuspended           = "suspended"
	TeamStatusPendingVerification = "pending_verification"
)

const (
	RoleOwner        = "owner"
	RoleBillingAdmin = "billing_admin"
	RoleMember       = "member"
)

const (
	MemberStatusActive    = "active"
	MemberStatusInvited   = "invited"
	MemberStatusSuspended = "suspended"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Team struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Owner        string   `json:"owner"` // owner email
	Verified     bool     `json:"verified"`
	Logo         string   `json:"logo,omitempty"`
	Status       string   `json:"status"`
	BillingEmail string   `json:"billing_email"`
	TaxID        string   `json:"tax_id,omitempty"`
	Address      *Address `json:"address,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

type TeamMember struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	JoinedAt    *int64 `json:"joined_at,omitempty"`
}

// TeamPatch carries a partial team update; nil fields are left untouched.
type TeamPatch struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=120"`
	Logo         *string  `json:"logo,omitempty"`
	BillingEmail *string  `json:"billing_email,omitempty" validate:"omitempty,email"`
	TaxID        *string  `json:"tax_id,omitempty"`
	Address      *Address `json:"address,omitempty"`
}

func (p TeamPatch) Empty() bool {
	return p.Name == nil && p.Logo == nil && p.BillingEmail == nil && p.TaxID == nil && p.Address == nil
}

// TouchesProfile reports whether the patch changes identity fields rather
// than billing contact fields.
func (p TeamPatch) TouchesProfile() bool {
	return p.Name != nil || p.Logo != nil
}

func (p TeamPatch) Apply(t *Team) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Logo != nil {
		t.Logo = *p.Logo
	}
	if p.BillingEmail != nil {
		t.BillingEmail = *p.BillingEmail
	}
	if p.TaxID != nil {
		t.TaxID = *p.TaxID
	}
	if p.Address != nil {
		addr := *p.Address
		t.Address = &addr
	}
}
