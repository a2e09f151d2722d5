package wl

import (
	"errors"
	"fmt"
	"io"
	"net"

	"deedles.dev/wlcore/internal/debug"
	"deedles.dev/wlcore/internal/ev"
	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/internal/objstore"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"deedles.dev/xsync"
)

// Transport is a connection to a single client. *wire.Conn implements
// it. ReadMessage is only ever called from the client's reader
// goroutine, and the other methods only from the goroutine that calls
// Server.Flush.
type Transport interface {
	ReadMessage() (*wire.MessageBuffer, error)
	WriteMessage(*wire.MessageBuilder) error
	Close() error
}

type Client struct {
	server *Server
	id     uint64
	stop   xsync.Stopper
	conn   Transport
	store  *objstore.Store
	queue  *ev.Queue
	out    []*wire.MessageBuilder

	display    *Display
	registries []*Registry

	closing   bool
	destroyed bool

	// Destroyed is emitted after all of the client's objects have been
	// torn down.
	Destroyed signal.Signal[*Client]
}

func newClient(server *Server, id uint64, conn Transport) *Client {
	client := Client{
		server: server,
		id:     id,
		conn:   conn,
		store:  objstore.New(wire.ServerIDStart),
		queue:  ev.NewQueue(),
	}

	client.display = newDisplay(&client)
	client.store.Add(client.display)

	go client.listen()

	return &client
}

type disconnectError struct {
	err error
}

func (err disconnectError) Error() string {
	return fmt.Sprintf("disconnected: %v", err.err)
}

func (err disconnectError) Unwrap() error {
	return err.err
}

func (client *Client) listen() {
	for {
		msg, err := client.conn.ReadMessage()
		if err != nil {
			select {
			case <-client.stop.Done():
			case client.queue.Add() <- func() error { return disconnectError{err: err} }:
			}
			return
		}

		select {
		case <-client.stop.Done():
			return
		case client.queue.Add() <- func() error { return client.dispatch(msg) }:
		}
	}
}

func (client *Client) dispatch(msg *wire.MessageBuffer) error {
	obj := client.store.Get(msg.Sender())
	if obj == nil {
		return wire.ProtocolErrorf(client.display, DisplayErrorInvalidObject, "%v", wire.UnknownSenderIDError{Msg: msg})
	}

	err := obj.Dispatch(msg)
	debug.Printf("%v", msg.Debug(obj))
	return err
}

func (client *Client) String() string {
	return fmt.Sprintf("client#%v", client.id)
}

func (client *Client) Server() *Server {
	return client.server
}

func (client *Client) Display() *Display {
	return client.display
}

// Add adds a new object to the client's object store. Objects created
// by a request carry the ID chosen by the client. Objects without an
// ID are assigned one from the server's range.
func (client *Client) Add(obj wire.Object) error {
	id := obj.ID()
	if id >= wire.ServerIDStart {
		return wire.ProtocolErrorf(client.display, DisplayErrorInvalidObject, "invalid new id %v", id)
	}

	err := client.store.Add(obj)
	if err != nil {
		return wire.ProtocolErrorf(client.display, DisplayErrorInvalidObject, "%v", err)
	}
	return nil
}

func (client *Client) Get(id uint32) wire.Object {
	return client.store.Get(id)
}

// Delete destroys the object with the given ID. If the ID was
// allocated by the client, the client is told that it may reuse it.
func (client *Client) Delete(id uint32) {
	if !client.store.Delete(id) {
		return
	}
	if (id < wire.ServerIDStart) && !client.destroyed {
		msg := client.display.NewEvent(evDisplayDeleteID, "delete_id", id)
		msg.WriteUint(id)
		client.Enqueue(msg)
	}
}

// Enqueue queues an event to be sent during the next flush. Events for
// a client that has been disconnected are dropped.
func (client *Client) Enqueue(msg *wire.MessageBuilder) {
	if client.destroyed {
		return
	}
	client.out = append(client.out, msg)
}

// PostError reports a fatal protocol error to the client. The client
// is disconnected at the end of the current flush.
func (client *Client) PostError(perr *wire.ProtocolError) {
	if client.closing || client.destroyed {
		return
	}

	logger.Warn("protocol error", "client", client, "object", perr.ObjectID, "code", perr.Code, "message", perr.Message)

	msg := client.display.NewEvent(evDisplayError, "error", perr.ObjectID, perr.Code, perr.Message)
	msg.WriteUint(perr.ObjectID)
	msg.WriteUint(perr.Code)
	msg.WriteString(perr.Message)
	client.Enqueue(msg)
	client.closing = true
}

// Flush processes all of the requests that have been received from the
// client since the last flush and then sends all queued events. It
// returns any protocol errors that the client caused.
func (client *Client) Flush() error {
	if client.destroyed {
		return nil
	}

	var errs []error
	select {
	case events := <-client.queue.Get():
		errs = events.FlushUntil(func(error) bool { return true })
	default:
	}

	var rerr error
	for _, err := range errs {
		rerr = client.handleError(err)
	}

	werr := client.flushEvents()
	if client.closing {
		client.destroy()
	}
	return errors.Join(rerr, werr)
}

func (client *Client) handleError(err error) error {
	var derr disconnectError
	if errors.As(err, &derr) {
		client.closing = true
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("%v: %w", client, err)
	}

	var perr *wire.ProtocolError
	if !errors.As(err, &perr) {
		perr = wire.ProtocolErrorf(client.display, DisplayErrorImplementation, "%v", err)
	}
	client.PostError(perr)
	return fmt.Errorf("%v: %w", client, perr)
}

func (client *Client) flushEvents() error {
	out := client.out
	client.out = nil

	for _, msg := range out {
		debug.Printf(" -> %v", msg)
		err := client.conn.WriteMessage(msg)
		if err != nil {
			client.closing = true
			return fmt.Errorf("%v: write %v: %w", client, msg.Method, err)
		}
	}
	return nil
}

// Close disconnects the client without reporting an error to it.
func (client *Client) Close() {
	client.closing = true
	client.destroy()
}

func (client *Client) destroy() {
	if client.destroyed {
		return
	}
	client.destroyed = true
	client.stop.Stop()

	for _, id := range client.store.IDs() {
		client.store.Delete(id)
	}
	client.out = nil
	client.registries = nil

	client.queue.Stop()
	client.conn.Close()

	client.server.removeClient(client)
	client.Destroyed.Emit(client)
}

// IsDestroyed reports whether the client has been disconnected.
func (client *Client) IsDestroyed() bool {
	return client.destroyed
}
