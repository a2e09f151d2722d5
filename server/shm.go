package wl

import (
	"image"
	"math"

	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/shm"
	"deedles.dev/wlcore/wire"
	"deedles.dev/ximage/format"
)

// Shm is a client's binding of the wl_shm global.
type Shm struct {
	Resource
}

func (server *Server) bindShm(client *Client, version, id uint32) error {
	s := &Shm{Resource: NewResource(client, ShmInterface, version, id)}
	if err := client.Add(s); err != nil {
		return err
	}

	for _, f := range []ShmFormat{ShmFormatArgb8888, ShmFormatXrgb8888} {
		msg := s.NewEvent(evShmFormat, "format", f)
		msg.WriteUint(uint32(f))
		s.Post(msg)
	}
	return nil
}

func (s *Shm) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opShmCreatePool:
		id := msg.ReadUint()
		file := msg.ReadFile()
		size := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}

		if size <= 0 {
			file.Close()
			return s.Errorf(ShmErrorInvalidStride, "invalid pool size %v", size)
		}

		pool, err := shm.NewPool(file, int(size))
		if err != nil {
			file.Close()
			return s.Errorf(ShmErrorInvalidFD, "failed to map pool: %v", err)
		}

		p := &ShmPool{
			Resource: NewResource(s.client, ShmPoolInterface, s.version, id),
			pool:     pool,
		}
		if err := s.client.Add(p); err != nil {
			pool.Unref()
			return err
		}
		return nil

	default:
		return UnknownOp(s, msg)
	}
}

func (s *Shm) MethodName(op uint16) string {
	switch op {
	case opShmCreatePool:
		return "create_pool"
	default:
		return "unknown method"
	}
}

func (s *Shm) Delete() {}

// ShmPool is a wl_shm_pool. The memory stays mapped until the pool and
// every buffer created from it have been destroyed.
type ShmPool struct {
	Resource
	pool *shm.Pool
}

func (p *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opShmPoolCreateBuffer:
		id := msg.ReadUint()
		offset := msg.ReadInt()
		width := msg.ReadInt()
		height := msg.ReadInt()
		stride := msg.ReadInt()
		format := ShmFormat(msg.ReadUint())
		if err := CheckMessage(p, msg); err != nil {
			return err
		}
		return p.createBuffer(id, offset, width, height, stride, format)

	case opShmPoolDestroy:
		if err := CheckMessage(p, msg); err != nil {
			return err
		}
		p.client.Delete(p.id)
		return nil

	case opShmPoolResize:
		size := msg.ReadInt()
		if err := CheckMessage(p, msg); err != nil {
			return err
		}

		if int(size) < p.pool.Size() {
			return p.Errorf(ShmErrorInvalidStride, "shrinking pool from %v to %v bytes is invalid", p.pool.Size(), size)
		}
		err := p.pool.Resize(int(size))
		if err != nil {
			return p.Errorf(ShmErrorInvalidFD, "failed to remap pool: %v", err)
		}
		return nil

	default:
		return UnknownOp(p, msg)
	}
}

func (p *ShmPool) MethodName(op uint16) string {
	switch op {
	case opShmPoolCreateBuffer:
		return "create_buffer"
	case opShmPoolDestroy:
		return "destroy"
	case opShmPoolResize:
		return "resize"
	default:
		return "unknown method"
	}
}

func (p *ShmPool) Delete() {
	err := p.pool.Unref()
	if err != nil {
		logger.Warn("release shm pool", "pool", p, "err", err)
	}
}

func (p *ShmPool) createBuffer(id uint32, offset, width, height, stride int32, format ShmFormat) error {
	if (format != ShmFormatArgb8888) && (format != ShmFormatXrgb8888) {
		return p.Errorf(ShmErrorInvalidFormat, "unsupported format %v", uint32(format))
	}

	if (offset < 0) || (width <= 0) || (height <= 0) || (int64(stride) < int64(width)*4) ||
		(math.MaxInt32/int64(stride) < int64(height)) ||
		(int64(offset)+int64(stride)*int64(height) > int64(p.pool.Size())) {
		return p.Errorf(ShmErrorInvalidStride, "invalid buffer geometry: offset %v, %vx%v, stride %v in pool of %v bytes", offset, width, height, stride, p.pool.Size())
	}

	storage := ShmStorage{
		pool:   p.pool,
		offset: int(offset),
		width:  int(width),
		height: int(height),
		stride: int(stride),
		format: format,
	}
	p.pool.Ref()

	_, err := NewBuffer(p.client, id, &storage)
	if err != nil {
		p.pool.Unref()
		return err
	}
	return nil
}

// ShmStorage is the storage of a buffer created from a wl_shm_pool.
type ShmStorage struct {
	pool   *shm.Pool
	offset int
	width  int
	height int
	stride int
	format ShmFormat
}

func (s *ShmStorage) Kind() BufferKind {
	return BufferKindShm
}

func (s *ShmStorage) Size() image.Point {
	return image.Pt(s.width, s.height)
}

func (s *ShmStorage) Origin() Origin {
	return OriginTopLeft
}

func (s *ShmStorage) Format() ShmFormat {
	return s.format
}

func (s *ShmStorage) Stride() int {
	return s.stride
}

// Image returns a copy of the buffer's pixels. The copy is taken
// because the pool is mapped read-only and the client may keep drawing
// into it.
func (s *ShmStorage) Image() image.Image {
	data := s.pool.Bytes(s.offset, s.stride*s.height)
	if data == nil {
		return nil
	}

	rowlen := s.width * 4
	pix := make([]byte, rowlen*s.height)
	for y := 0; y < s.height; y++ {
		copy(pix[y*rowlen:(y+1)*rowlen], data[y*s.stride:])
	}

	var f format.Format = format.ARGB8888
	if s.format == ShmFormatXrgb8888 {
		f = format.XRGB8888
	}

	return &format.Image{
		Format: f,
		Rect:   image.Rect(0, 0, s.width, s.height),
		Pix:    pix,
	}
}

func (s *ShmStorage) Release() {
	err := s.pool.Unref()
	if err != nil {
		logger.Warn("release shm buffer storage", "err", err)
	}
}
