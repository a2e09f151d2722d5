package wl

import (
	"fmt"

	"deedles.dev/wlcore/wire"
)

// Resource holds the state that every protocol object has in common.
// Protocol object implementations embed it.
type Resource struct {
	client  *Client
	iface   string
	version uint32
	id      uint32
}

func NewResource(client *Client, iface string, version, id uint32) Resource {
	return Resource{
		client:  client,
		iface:   iface,
		version: version,
		id:      id,
	}
}

func (r *Resource) ID() uint32 {
	return r.id
}

func (r *Resource) SetID(id uint32) {
	r.id = id
}

func (r *Resource) Client() *Client {
	return r.client
}

func (r *Resource) Interface() string {
	return r.iface
}

func (r *Resource) Version() uint32 {
	return r.version
}

func (r *Resource) String() string {
	return fmt.Sprintf("%v@%v", r.iface, r.id)
}

// NewEvent starts an event sent by r. The caller writes the arguments
// and then passes the message to Post.
func (r *Resource) NewEvent(op uint16, method string, args ...any) *wire.MessageBuilder {
	msg := wire.NewMessage(r, op)
	msg.Method = method
	msg.Args = args
	return msg
}

// Post queues msg to be sent to the resource's client.
func (r *Resource) Post(msg *wire.MessageBuilder) {
	r.client.Enqueue(msg)
}

// Errorf returns a protocol error attributed to r.
func (r *Resource) Errorf(code uint32, format string, args ...any) *wire.ProtocolError {
	return wire.ProtocolErrorf(r, code, format, args...)
}

// CheckMessage returns a protocol error if the arguments of msg could
// not be decoded. Dispatch implementations call it after reading the
// arguments of a request and before acting on them.
func CheckMessage(obj wire.Object, msg *wire.MessageBuffer) error {
	err := msg.Err()
	if err == nil {
		return nil
	}

	return &wire.ProtocolError{
		ObjectID: 1,
		Code:     DisplayErrorInvalidMethod,
		Message:  fmt.Sprintf("invalid arguments for %v.%v: %v", obj, obj.MethodName(msg.Op()), err),
	}
}

// UnknownOp returns the error for a request with an opcode that obj
// doesn't have.
func UnknownOp(obj wire.Object, msg *wire.MessageBuffer) error {
	return &wire.ProtocolError{
		ObjectID: 1,
		Code:     DisplayErrorInvalidMethod,
		Message: wire.UnknownOpError{
			Interface: fmt.Sprint(obj),
			Type:      "request",
			Op:        msg.Op(),
		}.Error(),
	}
}
