package event

// Bus events published by the service and delivery worker.

type CreatedEvent struct {
	Result Event
}

type CompletedEvent struct {
	Result Event
}

// ErroredEvent fires when an attempt failed but retries remain.
type ErroredEvent struct {
	Result Event
}

// FailedEvent fires when an event exhausts its attempts.
type FailedEvent struct {
	Result Event
}

type RequeuedEvent struct {
	Result Event
}
