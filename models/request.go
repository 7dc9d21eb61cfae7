package models

const (
	// Services
	RefDataService = "//blp/refdata"

	// Operations
	IntradayTickOperation = "IntradayTickRequest"

	// Event types
	EventTrade = "TRADE"
	EventBid   = "BID"
	EventAsk   = "ASK"

	DefaultSecurity = "IBM US Equity"

	// DateTimeLayout is the GMT datetime form accepted by the provider.
	DateTimeLayout = "2006-01-02T15:04:05"
)

var DefaultEventTypes = []string{EventTrade, EventBid, EventAsk}

// IntradayTickRequest is the parameter block of a single tick request.
type IntradayTickRequest struct {
	Security      string   `json:"security"`
	EventTypes    []string `json:"eventTypes"`
	StartDateTime string   `json:"startDateTime"`
	EndDateTime   string   `json:"endDateTime"`
}
