// Package wltest provides an in-memory client connection for testing
// protocol object implementations without a socket.
package wltest

import (
	"fmt"
	"io"
	"sync"

	"deedles.dev/wlcore/wire"
)

// Event is a message that was sent to a Transport.
type Event struct {
	// Object is the sender formatted as interface@id.
	Object string
	Method string
	Args   []any
}

func (ev Event) String() string {
	return fmt.Sprintf("%v.%v%v", ev.Object, ev.Method, ev.Args)
}

// Transport records the events sent to it. Reads block until it is
// closed and then report io.EOF.
type Transport struct {
	m      sync.Mutex
	events []Event
	done   chan struct{}
	close  sync.Once
}

func NewTransport() *Transport {
	return &Transport{done: make(chan struct{})}
}

func (t *Transport) ReadMessage() (*wire.MessageBuffer, error) {
	<-t.done
	return nil, io.EOF
}

func (t *Transport) WriteMessage(msg *wire.MessageBuilder) error {
	t.m.Lock()
	defer t.m.Unlock()

	t.events = append(t.events, Event{
		Object: fmt.Sprint(msg.Sender()),
		Method: msg.Method,
		Args:   msg.Args,
	})
	return nil
}

func (t *Transport) Close() error {
	t.close.Do(func() { close(t.done) })
	return nil
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Take returns the events recorded since the last call and forgets
// them.
func (t *Transport) Take() []Event {
	t.m.Lock()
	defer t.m.Unlock()

	events := t.events
	t.events = nil
	return events
}

// Methods returns the events recorded since the last call to Take,
// each formatted as interface@id.method, and forgets them.
func (t *Transport) Methods() []string {
	events := t.Take()
	methods := make([]string, 0, len(events))
	for _, ev := range events {
		methods = append(methods, ev.Object+"."+ev.Method)
	}
	return methods
}

// Find returns the recorded events with the given method name without
// forgetting them.
func (t *Transport) Find(method string) []Event {
	t.m.Lock()
	defer t.m.Unlock()

	var found []Event
	for _, ev := range t.events {
		if ev.Method == method {
			found = append(found, ev)
		}
	}
	return found
}
