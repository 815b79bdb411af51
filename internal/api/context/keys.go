package context

type Key string

const (
	Claims       Key = "claims"
	Team         Key = "team"
	Subscription Key = "subscription"
	APIKey       Key = "api_key"
	Params       Key = "params"
	RequestID    Key = "request_id"
)
