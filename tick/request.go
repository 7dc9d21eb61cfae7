package tick

import (
	"context"
	"time"

	"intradaytick/config"
	"intradaytick/models"
	"intradaytick/utils"
)

// Default trading window, GMT.
const (
	windowHour        = 15
	windowStartMinute = 30
	windowEndMinute   = 35
)

// Sender sends a request on an open session and returns its correlation id.
type Sender interface {
	SendRequest(ctx context.Context, service, operation string, params interface{}) (string, error)
}

// TradingDateRange returns 15:30:00 to 15:35:00 GMT on the most recent
// weekday strictly before now.
func TradingDateRange(now time.Time) (time.Time, time.Time) {
	d := now.UTC()
	for {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			break
		}
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, windowHour, windowStartMinute, 0, 0, time.UTC),
		time.Date(y, m, day, windowHour, windowEndMinute, 0, 0, time.UTC)
}

// BuildRequest turns run options into request parameters. A range with either
// end missing is replaced by the default trading window.
func BuildRequest(opts *config.Options, now time.Time) models.IntradayTickRequest {
	req := models.IntradayTickRequest{
		Security:   opts.Security,
		EventTypes: append([]string(nil), opts.Events...),
	}
	if len(req.EventTypes) == 0 {
		req.EventTypes = append([]string(nil), models.DefaultEventTypes...)
	}

	if opts.StartDateTime == "" || opts.EndDateTime == "" {
		if opts.StartDateTime != "" || opts.EndDateTime != "" {
			utils.Logger.Warnw("Incomplete date range, using default trading window",
				"start", opts.StartDateTime,
				"end", opts.EndDateTime)
		}
		start, end := TradingDateRange(now)
		req.StartDateTime = start.Format(models.DateTimeLayout)
		req.EndDateTime = end.Format(models.DateTimeLayout)
		return req
	}

	req.StartDateTime = opts.StartDateTime
	req.EndDateTime = opts.EndDateTime
	return req
}

// SendIntradayTickRequest logs and sends req to service.
func SendIntradayTickRequest(ctx context.Context, s Sender, service string, req models.IntradayTickRequest) (string, error) {
	utils.Logger.Infow("Sending Request",
		"service", service,
		"operation", models.IntradayTickOperation,
		"security", req.Security,
		"event_types", req.EventTypes,
		"start", req.StartDateTime,
		"end", req.EndDateTime,
	)
	return s.SendRequest(ctx, service, models.IntradayTickOperation, req)
}
