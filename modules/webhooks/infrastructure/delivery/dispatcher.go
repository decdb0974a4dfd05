package delivery

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
)

// Dispatcher performs one delivery attempt for an event. It never returns an
// error: every failure mode is captured in the outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *event.Event) attempt.Outcome
}

// HTTPDispatcher posts payloads as form-encoded bodies. Any response received
// counts as success regardless of status code; only transport failures are
// classified as network errors or timeouts. Timeouts are bounded by the
// caller's context deadline.
type HTTPDispatcher struct {
	client           *http.Client
	responseMaxBytes int64
}

func NewHTTPDispatcher(responseMaxBytes int64) *HTTPDispatcher {
	if responseMaxBytes <= 0 {
		responseMaxBytes = 1 << 20 // 1 MiB
	}
	return &HTTPDispatcher{
		client:           &http.Client{},
		responseMaxBytes: responseMaxBytes,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, e *event.Event) attempt.Outcome {
	return d.PostForm(ctx, e.DestinationURL, e.Payload)
}

// PostForm sends form as an application/x-www-form-urlencoded POST to
// destination and classifies the result. The relay proxy shares this
// transport.
func (d *HTTPDispatcher) PostForm(ctx context.Context, destination string, form url.Values) attempt.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, strings.NewReader(form.Encode()))
	if err != nil {
		return attempt.NetworkError(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return attempt.Timeout(err.Error())
		}
		return attempt.NetworkError(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.responseMaxBytes))
	if err != nil {
		if isTimeout(err) {
			return attempt.Timeout(err.Error())
		}
		return attempt.NetworkError(err.Error())
	}

	return attempt.Success(resp.StatusCode, string(body))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
