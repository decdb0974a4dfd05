package viewmodels

type Event struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	Kind           string              `json:"kind"`
	Payload        map[string][]string `json:"payload"`
	DestinationURL string              `json:"destination_url"`
	Status         string              `json:"status"`
	TryCount       int                 `json:"try_count"`
	NextAttempt    *string             `json:"next_attempt"`
	NextDelivery   string              `json:"next_delivery"`
	CreatedOn      string              `json:"created_on"`
}

type Attempt struct {
	AttemptIndex int    `json:"attempt_index"`
	Result       string `json:"result"`
	StatusCode   *int   `json:"status_code,omitempty"`
	Body         string `json:"body,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestedAt  string `json:"requested_at"`
	DurationMS   int64  `json:"duration_ms"`
}

type Summary struct {
	FailedWebhooks     bool  `json:"failed_webhooks"`
	WebhookErrorsCount int64 `json:"webhook_errors_count"`
}

type EndpointField struct {
	Name    string `json:"name"`
	Help    string `json:"help"`
	Default string `json:"default,omitempty"`
}

type Endpoint struct {
	Event  string          `json:"event"`
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Fields []EndpointField `json:"fields"`
}
