package models

import "time"

// RunStats summarises one request/response run.
type RunStats struct {
	Events         int
	Messages       int
	FailedMessages int
	Rows           int64
	Files          []string
	StartedAt      time.Time
	Duration       time.Duration
}
