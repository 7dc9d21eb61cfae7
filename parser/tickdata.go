package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intradaytick/models"
)

var ErrEmptyBody = errors.New("empty message body")

// ErrorInfo is the responseError element of a failed request.
type ErrorInfo struct {
	Source      string `json:"source,omitempty"`
	Code        int    `json:"code,omitempty"`
	Category    string `json:"category"`
	Message     string `json:"message"`
	Subcategory string `json:"subcategory,omitempty"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s (%s)", e.Category, e.Message)
}

type TickItem struct {
	Time  string  `json:"time"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Size  int32   `json:"size"`
}

// TickDataResponse is the body of an IntradayTickResponse message.
type TickDataResponse struct {
	TickData struct {
		TickData []TickItem `json:"tickData"`
	} `json:"tickData"`
	ResponseError *ErrorInfo `json:"responseError,omitempty"`
}

func ParseTickData(body []byte) (*TickDataResponse, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	resp := &TickDataResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("failed to decode tick data: %w", err)
	}
	return resp, nil
}

// Rows converts the tick items to rows for security, in message order. Items
// whose time does not parse are left out and reported in the returned error.
func (r *TickDataResponse) Rows(security string) ([]models.TickRow, error) {
	rows := make([]models.TickRow, 0, len(r.TickData.TickData))
	var errs []error
	for i, item := range r.TickData.TickData {
		ts, err := ParseTickTime(item.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("tick %d: %w", i, err))
			continue
		}
		rows = append(rows, models.TickRow{
			Timestamp: ts,
			Security:  security,
			Time:      item.Time,
			Type:      item.Type,
			Value:     item.Value,
			Size:      item.Size,
		})
	}
	return rows, errors.Join(errs...)
}

var tickTimeLayouts = []string{
	models.DateTimeLayout,
	time.RFC3339Nano,
}

// ParseTickTime parses a provider tick time as GMT.
func ParseTickTime(s string) (time.Time, error) {
	var err error
	for _, layout := range tickTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised tick time %q: %w", s, err)
}
