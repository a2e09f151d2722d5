package wire

import (
	"fmt"
)

// UnknownOpError is returned by Object.Dispatch if it is given a
// message with an invalid opcode.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// UnknownSenderIDError is returned by an attempt to dispatch an
// incoming message that indicates a method call on an object that the
// client doesn't own.
type UnknownSenderIDError struct {
	Msg *MessageBuffer
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v", err.Msg.Sender())
}

// ProtocolError is a fatal error caused by a client. The connection
// to the offending client is terminated after the error has been
// reported to it with a wl_display.error event.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

// ProtocolErrorf returns a ProtocolError attributed to obj.
func ProtocolErrorf(obj Sender, code uint32, format string, args ...any) *ProtocolError {
	var id uint32
	if !isNil(obj) {
		id = obj.ID()
	}

	return &ProtocolError{
		ObjectID: id,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %v (code %v): %v", err.ObjectID, err.Code, err.Message)
}
