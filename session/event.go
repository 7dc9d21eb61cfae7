package session

import "encoding/json"

type EventType string

const (
	EventSessionStatus   EventType = "SESSION_STATUS"
	EventServiceStatus   EventType = "SERVICE_STATUS"
	EventPartialResponse EventType = "PARTIAL_RESPONSE"
	EventResponse        EventType = "RESPONSE"
	EventRequestStatus   EventType = "REQUEST_STATUS"
	EventTimeout         EventType = "TIMEOUT"
	EventAdmin           EventType = "ADMIN"
)

// Message types
const (
	SessionStarted        = "SessionStarted"
	SessionStartupFailure = "SessionStartupFailure"
	SessionTerminated     = "SessionTerminated"
	ServiceOpened         = "ServiceOpened"
	ServiceOpenFailure    = "ServiceOpenFailure"
)

// Event is one batch of messages delivered by the gateway.
type Event struct {
	Type     EventType `json:"eventType"`
	Messages []Message `json:"messages"`
}

// Message is a single provider message. Body holds the element tree of the
// message as JSON and is decoded by the caller.
type Message struct {
	MessageType   string          `json:"messageType"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Service       string          `json:"service,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
}

// Has reports whether the event carries a message of the given type.
func (e Event) Has(messageType string) bool {
	for _, m := range e.Messages {
		if m.MessageType == messageType {
			return true
		}
	}
	return false
}

const (
	actionOpenService = "openService"
	actionRequest     = "request"
	actionStop        = "stop"
)

type outbound struct {
	Action        string      `json:"action"`
	CorrelationID string      `json:"correlationId"`
	Service       string      `json:"service,omitempty"`
	Operation     string      `json:"operation,omitempty"`
	Params        interface{} `json:"params,omitempty"`
}
