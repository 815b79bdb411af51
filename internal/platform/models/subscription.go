package models

const (
	SubscriptionTrial      = "trial"
	SubscriptionRegistered = "registered"
	SubscriptionActive     = "active"
	SubscriptionPastDue    = "past_due"
	SubscriptionSuspended  = "suspended"
	SubscriptionCancelled  = "cancelled"
	SubscriptionExpired    = "expired"
)

const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
)

type AppSubscription struct {
	ID                 string `json:"id"`
	TeamID             string `json:"team_id"`
	AppCode            string `json:"app_code"`
	Status             string `json:"status"`
	BillingCycle       string `json:"billing_cycle"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	SubscribedAt       int64  `json:"subscribed_at"`
	UpdatedAt          int64  `json:"updated_at"`
}

type App struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Published   bool   `json:"published"`
}

type Pricing struct {
	Monthly int64 `json:"monthly"`
	Yearly  int64 `json:"yearly"`
}

type AppPricing struct {
	AppCode     string   `json:"app_code"`
	AppName     string   `json:"app_name"`
	Description string   `json:"description"`
	Pricing     Pricing  `json:"pricing"`
	Features    []string `json:"features"`
}
