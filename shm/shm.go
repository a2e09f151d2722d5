// Package shm provides helpers for dealing with shared memory.
package shm

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create returns an anonymous, memory-backed file suitable for
// sharing with another process.
func Create(name string, size int64) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), name)

	err = file.Truncate(size)
	if err != nil {
		file.Close()
		return nil, err
	}

	return file, nil
}

type Mmap []byte

func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})

	return mmap, errors.Join(cerr, err)
}

func (mmap Mmap) Unmap() error {
	if len(mmap) == 0 {
		return nil
	}
	return unix.Munmap(mmap)
}

// Pool is a shared memory pool that a client has handed to the
// server. The pool stays mapped for as long as it is referenced, which
// includes every buffer created from it, even after the client has
// destroyed the pool object itself.
type Pool struct {
	file *os.File
	data Mmap
	refs int
}

// NewPool maps size bytes of file read-only. The pool takes ownership
// of file.
func NewPool(file *os.File, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pool size: %v", size)
	}

	data, err := Map(file, size, unix.PROT_READ)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &Pool{
		file: file,
		data: data,
		refs: 1,
	}, nil
}

// Size returns the size of the mapping in bytes.
func (p *Pool) Size() int {
	return len(p.data)
}

// Resize remaps the pool at a new size. Pools can only grow.
func (p *Pool) Resize(size int) error {
	if size < len(p.data) {
		return fmt.Errorf("cannot shrink pool from %v to %v bytes", len(p.data), size)
	}
	if size == len(p.data) {
		return nil
	}

	data, err := Map(p.file, size, unix.PROT_READ)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	old := p.data
	p.data = data
	return old.Unmap()
}

// Bytes returns length bytes of the pool starting at offset, or nil if
// that range is outside of the pool. The returned slice is only valid
// until the next call to Resize or the final Unref.
func (p *Pool) Bytes(offset, length int) []byte {
	if (offset < 0) || (length < 0) || (offset+length > len(p.data)) {
		return nil
	}
	return p.data[offset : offset+length : offset+length]
}

func (p *Pool) Ref() {
	p.refs++
}

// Unref drops a reference, unmapping the pool and closing its file
// when none remain.
func (p *Pool) Unref() error {
	p.refs--
	if p.refs > 0 {
		return nil
	}

	err := p.data.Unmap()
	p.data = nil
	return errors.Join(err, p.file.Close())
}
