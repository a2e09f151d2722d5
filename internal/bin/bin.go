// Package bin contains utilities for dealing with binary
// representations. All values are in host byte order, which is what
// the Wayland wire protocol uses.
package bin

import (
	"io"
	"unsafe"
)

func Bytes[T ~int32 | ~uint32](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

func Value[T ~int32 | ~uint32](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// Pack encodes a list of values as the contents of a wire array.
func Pack[T ~int32 | ~uint32](vals []T) []byte {
	buf := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		data := Bytes(v)
		buf = append(buf, data[:]...)
	}
	return buf
}

// Unpack decodes the contents of a wire array into a list of values.
// Trailing bytes that do not form a complete value are ignored.
func Unpack[T ~int32 | ~uint32](data []byte) []T {
	vals := make([]T, 0, len(data)/4)
	for len(data) >= 4 {
		vals = append(vals, Value[T]([4]byte(data[:4])))
		data = data[4:]
	}
	return vals
}
