package tick

import (
	"context"
	"fmt"
	"time"

	"intradaytick/metrics"
	"intradaytick/middleware"
	"intradaytick/models"
	"intradaytick/parser"
	"intradaytick/session"
	"intradaytick/utils"
)

type EventSource interface {
	NextEvent(ctx context.Context) (session.Event, error)
}

type RowWriter interface {
	WriteRows(rows []models.TickRow) error
	Files() []string
}

// Scraper drains the events of one intraday tick request into a RowWriter.
type Scraper struct {
	events   EventSource
	out      RowWriter
	sink     middleware.TickInserter
	security string
}

func NewScraper(events EventSource, out RowWriter, security string) *Scraper {
	return &Scraper{events: events, out: out, security: security}
}

// WithSink also sends the rows of each response event to sink. Sink failures
// are logged and counted; they never stop the run.
func (s *Scraper) WithSink(sink middleware.TickInserter) *Scraper {
	s.sink = sink
	return s
}

// Run processes events until the final RESPONSE. Messages whose correlation
// id is set and differs from correlationID are ignored.
func (s *Scraper) Run(ctx context.Context, correlationID string) (stats models.RunStats, err error) {
	stats.StartedAt = time.Now()
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		stats.Files = s.out.Files()
	}()

	for {
		ev, err := s.events.NextEvent(ctx)
		if err != nil {
			return stats, fmt.Errorf("waiting for response: %w", err)
		}
		stats.Events++
		metrics.RecordEvent(string(ev.Type))

		switch ev.Type {
		case session.EventPartialResponse:
			utils.Logger.Infow("Processing Partial Response", "messages", len(ev.Messages))
			if err := s.processResponseEvent(ctx, ev, correlationID, &stats); err != nil {
				return stats, err
			}
		case session.EventResponse:
			utils.Logger.Infow("Processing Response", "messages", len(ev.Messages))
			if err := s.processResponseEvent(ctx, ev, correlationID, &stats); err != nil {
				return stats, err
			}
			metrics.RecordRequestDuration(time.Since(stats.StartedAt))
			return stats, nil
		case session.EventSessionStatus:
			if ev.Has(session.SessionTerminated) {
				return stats, fmt.Errorf("before final response: %w", session.ErrSessionClosed)
			}
		default:
			utils.Logger.Debugw("Ignoring event", "event_type", ev.Type)
		}
	}
}

func (s *Scraper) processResponseEvent(ctx context.Context, ev session.Event, correlationID string, stats *models.RunStats) error {
	var batch []models.TickRow

	for _, msg := range ev.Messages {
		if correlationID != "" && msg.CorrelationID != "" && msg.CorrelationID != correlationID {
			utils.Logger.Debugw("Ignoring message for another request", "correlation_id", msg.CorrelationID)
			continue
		}
		stats.Messages++

		resp, err := parser.ParseTickData(msg.Body)
		if err != nil {
			stats.FailedMessages++
			utils.Error(err, "Skipping undecodable message", "message_type", msg.MessageType)
			continue
		}
		if resp.ResponseError != nil {
			stats.FailedMessages++
			metrics.RecordResponseError(resp.ResponseError.Category)
			utils.Logger.Errorw("REQUEST FAILED: "+resp.ResponseError.Error(),
				"security", s.security,
				"subcategory", resp.ResponseError.Subcategory)
			continue
		}

		rows, err := resp.Rows(s.security)
		if err != nil {
			stats.FailedMessages++
			utils.Error(err, "Skipping ticks with invalid time", "message_type", msg.MessageType)
		}
		if err := s.out.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write ticks: %w", err)
		}
		stats.Rows += int64(len(rows))
		batch = append(batch, rows...)
	}

	if s.sink != nil && len(batch) > 0 {
		if err := s.sink.InsertTicks(ctx, batch); err != nil {
			metrics.RecordSinkError()
			utils.Error(err, "Secondary sink insert failed", "rows", len(batch))
		}
	}
	return nil
}
