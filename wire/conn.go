package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"deedles.dev/wlcore/internal/bin"
	"deedles.dev/wlcore/internal/set"
	"golang.org/x/sys/unix"
)

const readChunkSize = 4096

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(xdgRuntimeDir(), v)
}

// NewSocketPath attempts to generate a valid path for opening a new
// socket to listen on.
func NewSocketPath() (string, error) {
	dir := xdgRuntimeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		after = strings.TrimSuffix(after, ".lock")
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}

	var num int
	for names.Has(num) {
		num++
	}

	return filepath.Join(dir, fmt.Sprintf("wayland-%v", num)), nil
}

// Listener is a Unix socket listener guarded by a lock file, in the
// same manner as libwayland's display sockets.
type Listener struct {
	*net.UnixListener
	lock *os.File
}

// Listen opens a socket at path. A lock file is created next to the
// socket, and if another process already holds it Listen fails
// instead of clobbering a live socket. A relative path is resolved
// against $XDG_RUNTIME_DIR.
func Listen(path string) (*Listener, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(xdgRuntimeDir(), path)
	}

	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0640)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	err = unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("lock %v: %w", path, err)
	}

	err = os.Remove(path)
	if (err != nil) && !errors.Is(err, os.ErrNotExist) {
		lock.Close()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lock.Close()
		return nil, err
	}

	return &Listener{UnixListener: lis, lock: lock}, nil
}

// Path returns the filesystem path of the socket.
func (lis *Listener) Path() string {
	return lis.Addr().String()
}

// Close closes the socket and releases the lock file.
func (lis *Listener) Close() error {
	path := lis.lock.Name()
	return errors.Join(
		lis.UnixListener.Close(),
		lis.lock.Close(),
		os.Remove(path),
	)
}

// Conn represents a low-level Wayland connection. Reads are buffered
// and file descriptors received alongside the data are queued until a
// decoded message asks for them.
type Conn struct {
	conn *net.UnixConn
	rbuf []byte

	m   sync.Mutex
	fds []int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
	}
}

// Close closes the underlying connection and any received file
// descriptors that were never claimed.
func (c *Conn) Close() error {
	c.m.Lock()
	fds := c.fds
	c.fds = nil
	c.m.Unlock()

	for _, fd := range fds {
		unix.Close(fd)
	}
	return c.conn.Close()
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}

	c.m.Lock()
	defer c.m.Unlock()

	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Conn) takeFD() (int, bool) {
	c.m.Lock()
	defer c.m.Unlock()

	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// fill reads from the socket until at least n bytes are buffered.
func (c *Conn) fill(n int) error {
	buf := make([]byte, readChunkSize)
	oob := make([]byte, unix.CmsgSpace(MaxFDs*4))
	for len(c.rbuf) < n {
		rn, oobn, _, _, err := c.conn.ReadMsgUnix(buf, oob)
		if oobn > 0 {
			ferr := c.readFDs(oob[:oobn])
			if ferr != nil {
				return ferr
			}
		}
		if rn > 0 {
			c.rbuf = append(c.rbuf, buf[:rn]...)
		}

		if err != nil {
			if len(c.rbuf) >= n {
				return nil
			}
			return err
		}
		if rn == 0 {
			if len(c.rbuf) == 0 {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

// ReadMessage reads a single complete message from the socket into a
// buffer. The returned buffer claims file descriptors from the
// connection as its arguments are decoded, so messages must be decoded
// in the order in which they were read.
func (c *Conn) ReadMessage() (*MessageBuffer, error) {
	err := c.fill(8)
	if err != nil {
		return nil, fmt.Errorf("read message header: %w", err)
	}

	sender := bin.Value[uint32]([4]byte(c.rbuf[0:4]))
	so := bin.Value[uint32]([4]byte(c.rbuf[4:8]))
	size := int(so >> 16)
	if (size < 8) || (size%4 != 0) {
		return nil, fmt.Errorf("invalid message size: %v", size)
	}

	err = c.fill(size)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}

	data := make([]byte, size-8)
	copy(data, c.rbuf[8:size])
	c.rbuf = c.rbuf[size:]

	msg := MessageBuffer{
		sender: sender,
		op:     uint16(so & 0xFFFF),
		size:   uint16(size),
		fds:    c,
	}
	msg.data.Reset(data)
	return &msg, nil
}

// WriteMessage sends a completed message over the connection.
func (c *Conn) WriteMessage(mb *MessageBuilder) error {
	return mb.Build(c)
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		return NewConn(c.(*net.UnixConn)), nil
	}

	s, err := net.Dial("unix", SocketPath())
	if err != nil {
		return nil, err
	}
	return NewConn(s.(*net.UnixConn)), nil
}

// Pipe returns a connected pair of Conns backed by a Unix socket
// pair.
func Pipe() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	conns := make([]*Conn, 0, 2)
	for i, fd := range fds {
		file := os.NewFile(uintptr(fd), fmt.Sprintf("wayland-pipe-%v", i))
		c, err := net.FileConn(file)
		file.Close()
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			if i == 0 {
				unix.Close(fds[1])
			}
			return nil, nil, fmt.Errorf("open socket pair: %w", err)
		}
		conns = append(conns, NewConn(c.(*net.UnixConn)))
	}

	return conns[0], conns[1], nil
}
