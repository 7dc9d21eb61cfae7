package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sony/gobreaker"

	"intradaytick/models"
	"intradaytick/utils"
)

// TickInserter is a secondary destination for tick rows.
type TickInserter interface {
	InsertTicks(ctx context.Context, rows []models.TickRow) error
}

// GuardedInserter stops calling the wrapped inserter once it keeps failing.
type GuardedInserter struct {
	next TickInserter
	cb   *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			utils.Logger.Infow("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

func NewGuardedInserter(next TickInserter) *GuardedInserter {
	return &GuardedInserter{next: next, cb: NewCircuitBreaker("tick-sink")}
}

func (g *GuardedInserter) InsertTicks(ctx context.Context, rows []models.TickRow) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.InsertTicks(ctx, rows)
	})
	return err
}

func (g *GuardedInserter) State() gobreaker.State {
	return g.cb.State()
}

// Recover runs fn and turns a panic into an error after logging the stack.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Errorw("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
