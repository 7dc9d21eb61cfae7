package models

import "time"

// TickRow is one tickData element of an intraday tick response.
// Time is kept exactly as the provider sent it, Timestamp is its parsed form.
type TickRow struct {
	Timestamp time.Time `ch:"timestamp"`
	Security  string    `ch:"security"`
	Time      string    `ch:"time"`
	Type      string    `ch:"type"`
	Value     float64   `ch:"value"`
	Size      int32     `ch:"size"`
}

// Date returns the YYYY-MM-DD prefix of the raw tick time.
func (r TickRow) Date() string {
	if len(r.Time) < 10 {
		return r.Time
	}
	return r.Time[:10]
}
