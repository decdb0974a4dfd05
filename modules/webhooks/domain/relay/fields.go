package relay

import "net/url"

// allowedFields is the only set of payload keys the relay will ever forward.
// Anything else is dropped so the relay cannot be used as an open proxy for
// arbitrary fields. The simulator catalog documents payloads against this
// same set.
var allowedFields = []string{
	"relayer",
	"channel",
	"sms",
	"phone",
	"text",
	"time",
	"call",
	"duration",
	"power_level",
	"power_status",
	"power_source",
	"network_type",
	"pending_message_count",
	"retry_message_count",
	"last_seen",
	"event",
	"step",
	"values",
	"flow",
	"relayer_phone",
}

var allowedIndex = func() map[string]struct{} {
	m := make(map[string]struct{}, len(allowedFields))
	for _, f := range allowedFields {
		m[f] = struct{}{}
	}
	return m
}()

// Allowed reports whether the relay forwards the given payload key.
func Allowed(key string) bool {
	_, ok := allowedIndex[key]
	return ok
}

// AllowedFields returns the forwardable keys in declaration order.
func AllowedFields() []string {
	out := make([]string, len(allowedFields))
	copy(out, allowedFields)
	return out
}

// Filter keeps only allow-listed keys. Repeated values survive, unknown keys
// are silently dropped.
func Filter(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for key, values := range in {
		if Allowed(key) {
			out[key] = values
		}
	}
	return out
}
