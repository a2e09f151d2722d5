// Package ev provides the concurrent queue that moves work from a
// connection's reader goroutine to the goroutine that owns the
// protocol state.
package ev

import (
	"errors"

	"deedles.dev/wlcore/internal/cq"
)

type Queue = cq.Queue[func() error, *Events]

func NewQueue() *Queue {
	return cq.New(func(v []func() error) *Events {
		return &Events{
			events: v,
		}
	})
}

// Events represents a series of events from a queue.
type Events struct {
	events []func() error
}

// Len returns the number of events that have not yet been run.
func (q *Events) Len() int {
	return len(q.events)
}

// Flush processess all of the events represented by q.
func (q *Events) Flush() error {
	return errors.Join(q.FlushUntil(nil)...)
}

// FlushUntil runs events in order, collecting their errors. If stop is
// not nil and returns true for an error, the remaining events are
// discarded.
func (q *Events) FlushUntil(stop func(error) bool) (errs []error) {
	events := q.events
	q.events = nil

	for _, ev := range events {
		err := ev()
		if err == nil {
			continue
		}

		errs = append(errs, err)
		if (stop != nil) && stop(err) {
			break
		}
	}
	return errs
}
