package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deedles.dev/wlcore/internal/bin"
)

type fdSource interface {
	takeFD() (int, bool)
}

// MessageBuffer holds message data that has been read from the socket
// but not yet decoded. The Read methods decode arguments in order. The
// first decoding failure is sticky and is reported by Err.
type MessageBuffer struct {
	sender uint32
	op     uint16
	size   uint16
	data   bytes.Reader
	fds    fdSource
	err    error
	args   []any
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() uint16 {
	return r.size
}

// Err returns the first error encountered while decoding arguments.
func (r *MessageBuffer) Err() error {
	if errors.Is(r.err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return r.err
}

func (r *MessageBuffer) ReadInt() (v int32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[int32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() (v uint32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[uint32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadNewID() NewID {
	return NewID{
		Interface: r.ReadString(),
		Version:   r.ReadUint(),
		ID:        r.ReadUint(),
	}
}

func (r *MessageBuffer) ReadFixed() (v Fixed) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[Fixed](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadString() string {
	if r.err != nil {
		return ""
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return ""
	}
	if length == 0 {
		r.args = append(r.args, nil)
		return ""
	}
	pad := padding(length)

	var str strings.Builder
	str.Grow(int(length + pad))
	_, r.err = io.CopyN(&str, &r.data, int64(length+pad))
	if r.err != nil {
		return ""
	}
	v := str.String()
	if v[length-1] != 0 {
		r.err = errors.New("string is not null-terminated")
		return ""
	}

	r.args = append(r.args, v[:length-1])
	return v[:length-1]
}

func (r *MessageBuffer) ReadArray() []byte {
	if r.err != nil {
		return nil
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return nil
	}
	if int64(length) > int64(r.data.Len()) {
		r.err = fmt.Errorf("array length %v exceeds message size", length)
		return nil
	}
	pad := padding(length)

	buf := make([]byte, length+pad)
	_, r.err = io.ReadFull(&r.data, buf)
	if r.err != nil {
		return nil
	}

	r.args = append(r.args, buf[:length])
	return buf[:length]
}

// ReadFile claims the next file descriptor received on the connection
// that the message was read from. The caller owns the returned file.
func (r *MessageBuffer) ReadFile() *os.File {
	if r.err != nil {
		return nil
	}

	if r.fds == nil {
		r.err = errors.New("no more file descriptors")
		return nil
	}
	fd, ok := r.fds.takeFD()
	if !ok {
		r.err = errors.New("no more file descriptors")
		return nil
	}

	f := os.NewFile(uintptr(fd), "")
	r.args = append(r.args, f)
	return f
}

// Debug formats the decoded message as a method call on sender.
func (r *MessageBuffer) Debug(sender Object) string {
	args := make([]string, 0, len(r.args))
	for _, arg := range r.args {
		switch arg := arg.(type) {
		case nil:
			args = append(args, "nil")
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, fmt.Sprintf("fd %v", arg.Fd()))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}

	method := sender.MethodName(r.op)
	return fmt.Sprintf("%v.%v(%v)", sender, method, strings.Join(args, ", "))
}
