// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is used by the protocol object implementations in
// the server and xdg packages.
package wire

// MaxFDs is the maximum number of file descriptors that can accompany
// a single write to the socket.
const MaxFDs = 28

// ServerIDStart is the first object ID in the range that is allocated
// by the server rather than the client.
const ServerIDStart = 0xff000000

// Sender is anything that can be the sender of a message.
type Sender interface {
	ID() uint32
}

// Object represents a Wayland protocol object.
type Object interface {
	Sender

	// SetID sets the ID of the object. It is called by the object
	// store when an object without an ID is added to it.
	SetID(id uint32)

	// Dispatch pertforms the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// MethodName returns the name of the request with the given
	// opcode. It is used for debugging output.
	MethodName(op uint16) string

	// Delete is called when the object is removed from the object
	// store, either because it was destroyed or because the client
	// that owned it disconnected.
	Delete()
}

// NewID is the argument of a request that creates a new object of an
// interface that is not known in advance, such as wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func padding(length uint32) uint32 {
	return (4 - length%4) % 4
}
