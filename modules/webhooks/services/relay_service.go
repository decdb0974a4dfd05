package services

import (
	"context"
	"net/url"
	"time"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/relay"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/delivery"
)

const defaultRelayTimeout = 10 * time.Second

// RelayService forwards a relayer's raw payload to an arbitrary URL on its
// behalf, stripping every field outside the relay allow-list first. Transport
// failures are reported in the response text, not as errors, because the
// relayers that call this cannot do anything useful with an HTTP failure.
type RelayService struct {
	dispatcher *delivery.HTTPDispatcher
	timeout    time.Duration
}

func NewRelayService(dispatcher *delivery.HTTPDispatcher, timeout time.Duration) *RelayService {
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}
	return &RelayService{dispatcher: dispatcher, timeout: timeout}
}

// Forward posts the allow-listed subset of data to destination and returns
// the response text, or a description of the transport failure.
func (s *RelayService) Forward(ctx context.Context, destination, data string) string {
	// ParseQuery keeps the pairs it managed to parse even on error, which
	// matches how permissive the relayers are about what they send.
	values, err := url.ParseQuery(data)
	if err != nil && len(values) == 0 {
		values = url.Values{}
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome := s.dispatcher.PostForm(tctx, destination, relay.Filter(values))
	if outcome.Delivered() {
		return outcome.Body
	}
	return outcome.Reason
}
