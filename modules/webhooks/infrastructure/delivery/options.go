package delivery

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
)

type WorkerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// LeaseTTL is how far Claim pushes an event's schedule into the future.
	// A worker that crashes mid-attempt loses its claim once the lease runs
	// out and the event becomes due again.
	LeaseTTL        time.Duration
	MaxAttempts     int
	SingleActive    bool
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	DispatchTimeout time.Duration

	// ResponseMaxBytes bounds the stored attempt body and failure reason.
	ResponseMaxBytes int

	Logger *logrus.Entry

	Rand *rand.Rand

	ObserveQueueDepthEvery time.Duration
}

func (o *WorkerOptions) setDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = 1 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.LeaseTTL == 0 {
		o.LeaseTTL = 60 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = event.DefaultMaxAttempts
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 200 * time.Millisecond
	}
	if o.DispatchTimeout == 0 {
		o.DispatchTimeout = 3 * time.Second
	}
	if o.ResponseMaxBytes == 0 {
		o.ResponseMaxBytes = 2048
	}
	if o.ObserveQueueDepthEvery == 0 {
		o.ObserveQueueDepthEvery = 10 * time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
}

type CleanerOptions struct {
	Enabled   bool
	Interval  time.Duration
	Retention time.Duration
	// FailedRetention of zero keeps permanently failed events forever.
	FailedRetention time.Duration

	Logger *logrus.Entry
}

func (o *CleanerOptions) setDefaults() {
	if o.Interval == 0 {
		o.Interval = 1 * time.Minute
	}
	if o.Retention == 0 {
		o.Retention = 7 * 24 * time.Hour
	}
}
