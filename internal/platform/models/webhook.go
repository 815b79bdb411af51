package models

type Webhook struct {
	ID              string   `json:"id"`
	SubscriptionID  string   `json:"subscription_id"`
	URL             string   `json:"url"`
	Events          []string `json:"events"` // JSON array in DB
	Secret          string   `json:"secret,omitempty"`
	Status          string   `json:"status"` // active, paused, failed
	RetryCount      int      `json:"retry_count"`
	LastTriggeredAt int64    `json:"last_triggered_at,omitempty"`
	LastError       string   `json:"last_error,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

type WebhookEvent struct {
	ID             string      `json:"id"`
	Event          string      `json:"event"`
	Timestamp      int64       `json:"timestamp"`
	TeamID         string      `json:"team_id"`
	SubscriptionID string      `json:"subscription_id"`
	Data           interface{} `json:"data"`
}

// WebhookDelivery is a failed delivery kept for the retry worker.
type WebhookDelivery struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
	EventID   string `json:"event_id"`
	Payload   []byte `json:"-"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}
