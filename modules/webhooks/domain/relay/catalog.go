package relay

import "github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"

// Field documents one example payload key for the simulator.
type Field struct {
	Name    string `json:"name"`
	Help    string `json:"help"`
	Default string `json:"default"`
}

// Endpoint documents the payload a given event kind carries.
type Endpoint struct {
	Event  event.Kind `json:"event"`
	Title  string     `json:"title"`
	Color  string     `json:"color"`
	Fields []Field    `json:"fields"`
}

// Catalog is the simulator's reference data: for each event kind, the fields
// a tenant's endpoint should expect, with example defaults.
func Catalog() []Endpoint {
	smsFields := []Field{
		{Name: "relayer", Help: "The id of the channel which received an SMS", Default: "5"},
		{Name: "relayer_phone", Help: "The phone number of the channel which received an SMS", Default: "+250788123123"},
		{Name: "sms", Help: "The id of the incoming SMS message", Default: "1"},
		{Name: "phone", Help: "The phone number of the sender in E164 format", Default: "+250788123123"},
		{Name: "text", Help: "The text of the SMS message", Default: "That gucci is hella tight"},
		{Name: "status", Help: "The status of this SMS message, one of P,H,S,D,E,F", Default: "D"},
		{Name: "direction", Help: "The direction of the SMS, either I for incoming or O for outgoing", Default: "I"},
		{Name: "time", Help: "When this event occurred in ECMA-162 format", Default: "2013-01-21T22:34:00.123"},
	}

	callFields := []Field{
		{Name: "relayer", Help: "The id of the channel which received a call", Default: "5"},
		{Name: "relayer_phone", Help: "The phone number of the channel which received an SMS", Default: "+250788123123"},
		{Name: "call", Help: "The id of the call", Default: "1"},
		{Name: "phone", Help: "The phone number of the caller or callee in E164 format", Default: "+250788123123"},
		{Name: "duration", Help: "The duration of the call (always 0 for missed calls)", Default: "0"},
		{Name: "time", Help: "When this event was received by the channel in ECMA-162 format", Default: "2013-01-21T22:34:00.123"},
	}

	alarmFields := []Field{
		{Name: "relayer", Help: "The id of the channel which this alarm is for", Default: "1"},
		{Name: "relayer_phone", Help: "The phone number of the channel", Default: "+250788123123"},
		{Name: "power_level", Help: "The current power level of the channel", Default: "65"},
		{Name: "power_status", Help: "The current power status, either CHARGING or DISCHARGING", Default: "CHARGING"},
		{Name: "power_source", Help: "The source of power, ex: BATTERY, AC, USB", Default: "AC"},
		{Name: "network_type", Help: "The type of network the device is connected to. ex: WIFI", Default: "WIFI"},
		{Name: "pending_message_count", Help: "The number of unsent messages for this channel", Default: "0"},
		{Name: "retry_message_count", Help: "The number of messages that had send errors and are being retried", Default: "0"},
		{Name: "last_seen", Help: "The time that this channel last synced in ECMA-162 format", Default: "2013-01-21T22:34:00.123"},
	}

	flowFields := []Field{
		{Name: "relayer", Help: "The id of the channel which handled this flow step", Default: "1"},
		{Name: "relayer_phone", Help: "The phone number of the channel", Default: "+250788123123"},
		{Name: "phone", Help: "The phone number of the contact", Default: "+250788788123"},
		{Name: "flow", Help: "The id of the flow (reference the URL on your flow page)", Default: "504"},
		{Name: "step", Help: "The uuid of the step which triggered this event (reference your flow)", Default: "15121251-15121241-15145152-12541241"},
		{Name: "time", Help: "The time that this step was reached by the user in ECMA-162 format", Default: "2013-01-21T22:34:00.123"},
		{Name: "values", Help: "The values that have been collected for this contact thus far through the flow", Default: `[{ "label": "Water Source", "category": "Stream", "text": "from stream", "time": "2013-01-01T05:35:32.012" }, { "label": "Boil", "category": "Yes", "text": "yego", "time": "2013-01-01T05:36:54.012" }]`},
	}

	return []Endpoint{
		{Event: event.KindMoSMS, Title: "Sent when your channel receives a new SMS message", Color: "green", Fields: smsFields},
		{Event: event.KindMtSent, Title: "Sent when your channel has confirmed it has sent an outgoing SMS", Color: "green", Fields: smsFields},
		{Event: event.KindMtDlvd, Title: "Sent when your channel receives a delivery report for an outgoing SMS", Color: "green", Fields: smsFields},
		{Event: event.KindMoCall, Title: "Sent when your channel receives an incoming call that was picked up", Color: "blue", Fields: callFields},
		{Event: event.KindMoMiss, Title: "Sent when your channel receives an incoming call that was missed", Color: "blue", Fields: callFields},
		{Event: event.KindMtCall, Title: "Sent when your channel places an outgoing call that was connected", Color: "blue", Fields: callFields},
		{Event: event.KindMtMiss, Title: "Sent when your channel places an outgoing call that was not connected", Color: "blue", Fields: callFields},
		{Event: event.KindAlarm, Title: "Sent when we detect either a low battery, unsent messages, or lack of connectivity for your channel", Color: "red", Fields: alarmFields},
		{Event: event.KindFlow, Title: "Sent when a user reaches an API node in a flow", Color: "purple", Fields: flowFields},
	}
}
