package models

import "time"

type WebhookEvent struct {
	ID             string
	TenantID       string
	Kind           string
	Payload        string
	DestinationURL string
	Status         string
	TryCount       int
	NextAttempt    *time.Time
	CreatedAt      time.Time
}

type WebhookAttempt struct {
	ID           uint
	EventID      string
	AttemptIndex int
	Result       string
	StatusCode   *int
	Body         string
	Reason       string
	RequestedAt  time.Time
	DurationMS   int64
}
