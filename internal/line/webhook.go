package line

import (
	"net/url"
	"strings"
)

// Payload is the webhook request body.
type Payload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event.
type Event struct {
	Type           string           `json:"type"`
	ReplyToken     string           `json:"replyToken"`
	WebhookEventID string           `json:"webhookEventId"`
	Timestamp      int64            `json:"timestamp"`
	Source         Source           `json:"source"`
	Message        *IncomingMsg     `json:"message,omitempty"`
	Postback       *Postback        `json:"postback,omitempty"`
	Delivery       *DeliveryContext `json:"deliveryContext,omitempty"`
}

// Source identifies who triggered an event.
type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// IncomingMsg is the message object of a message event.
type IncomingMsg struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Postback carries button data.
type Postback struct {
	Data string `json:"data"`
}

// DeliveryContext tells whether the event is a redelivery.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Event types handled by the service.
const (
	EventMessage  = "message"
	EventPostback = "postback"
)

// IsText reports whether e is a text message event.
func (e Event) IsText() bool {
	return e.Type == EventMessage && e.Message != nil && e.Message.Type == "text"
}

// PostbackAction splits postback data of the form action=x&order=y.
func PostbackAction(data string) (action, order string) {
	values, err := url.ParseQuery(strings.TrimSpace(data))
	if err != nil {
		return "", ""
	}
	return values.Get("action"), values.Get("order")
}
