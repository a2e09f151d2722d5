package wl

import (
	"image"
	"image/draw"

	"deedles.dev/wlcore/region"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
)

type BufferKind int

const (
	BufferKindShm BufferKind = iota
	BufferKindHardware
	BufferKindMemory
)

// Origin is the corner of a buffer that its first row of pixels
// belongs to.
type Origin int

const (
	OriginTopLeft Origin = iota
	OriginBottomLeft
)

// BufferStorage is the memory behind a buffer.
type BufferStorage interface {
	Kind() BufferKind
	Size() image.Point
	Origin() Origin

	// Image returns the pixels of the buffer, or nil if they are not
	// accessible to the CPU.
	Image() image.Image

	// Release frees the storage once the buffer has been destroyed
	// and is no longer in use.
	Release()
}

// Buffer is a wl_buffer. It counts how many holders are using it,
// counting the current state of a surface and each view showing it.
// When the count drops to zero, the client is told that it may reuse
// the buffer.
type Buffer struct {
	Resource
	storage   BufferStorage
	locks     int
	destroyed bool
	damage    region.Region

	// Destroyed is emitted when the client destroys the buffer.
	Destroyed signal.Signal[*Buffer]
}

// NewBuffer creates a buffer with the given protocol object ID. If id
// is zero, the buffer is given a server-allocated ID.
func NewBuffer(client *Client, id uint32, storage BufferStorage) (*Buffer, error) {
	b := Buffer{
		Resource: NewResource(client, BufferInterface, 1, id),
		storage:  storage,
	}
	if err := client.Add(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opBufferDestroy:
		if err := CheckMessage(b, msg); err != nil {
			return err
		}
		b.client.Delete(b.id)
		return nil

	default:
		return UnknownOp(b, msg)
	}
}

func (b *Buffer) MethodName(op uint16) string {
	switch op {
	case opBufferDestroy:
		return "destroy"
	default:
		return "unknown method"
	}
}

func (b *Buffer) Delete() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.Destroyed.Emit(b)

	if b.locks == 0 {
		b.storage.Release()
	}
}

func (b *Buffer) Storage() BufferStorage {
	return b.storage
}

// Size returns the size of the buffer in pixels. A nil buffer has a
// size of zero.
func (b *Buffer) Size() image.Point {
	if b == nil {
		return image.Point{}
	}
	return b.storage.Size()
}

// HasContent reports whether b is a buffer with a non-zero size.
func (b *Buffer) HasContent() bool {
	size := b.Size()
	return (size.X > 0) && (size.Y > 0)
}

func (b *Buffer) Kind() BufferKind {
	return b.storage.Kind()
}

func (b *Buffer) Origin() Origin {
	return b.storage.Origin()
}

func (b *Buffer) Image() image.Image {
	if b == nil {
		return nil
	}
	return b.storage.Image()
}

// IsDestroyed reports whether the client has destroyed the buffer.
func (b *Buffer) IsDestroyed() bool {
	return b.destroyed
}

// Damage returns the damage that was committed with the buffer most
// recently, in surface-local coordinates.
func (b *Buffer) Damage() region.Region {
	return b.damage
}

func (b *Buffer) committed(damage region.Region) {
	b.damage = damage
}

// Lock records a new holder of the buffer. It is a no-op on a nil
// buffer.
func (b *Buffer) Lock() {
	if b == nil {
		return
	}
	b.locks++
}

// Unlock drops a holder of the buffer. When the last one is dropped,
// the buffer is released back to the client, or freed if the client
// has already destroyed it. It is a no-op on a nil buffer.
func (b *Buffer) Unlock() {
	if b == nil {
		return
	}
	if b.locks <= 0 {
		panic("wl: Unlock of unlocked buffer")
	}

	b.locks--
	if b.locks > 0 {
		return
	}

	if b.destroyed {
		b.storage.Release()
		return
	}
	b.Post(b.NewEvent(evBufferRelease, "release"))
}

// Locks returns the number of holders of the buffer.
func (b *Buffer) Locks() int {
	return b.locks
}

// ImageStorage is buffer storage backed by an image owned by the
// compositor itself.
type ImageStorage struct {
	Img draw.Image
}

func (s *ImageStorage) Kind() BufferKind {
	return BufferKindMemory
}

func (s *ImageStorage) Size() image.Point {
	return s.Img.Bounds().Size()
}

func (s *ImageStorage) Origin() Origin {
	return OriginTopLeft
}

func (s *ImageStorage) Image() image.Image {
	return s.Img
}

func (s *ImageStorage) Release() {}
