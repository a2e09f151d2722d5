package wl

import (
	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/region"
	"deedles.dev/wlcore/signal"
)

// View is one presentation of a surface, usually on a single output.
// It keeps its own copy of the buffer to show so that a renderer can
// decide when to pick up new content by calling Advance.
//
// A view holds a reference to its surface by ID, not by pointer. It
// keeps the surface allocated while attached, but is detached
// automatically when the surface's protocol object is destroyed.
type View struct {
	server  *Server
	surface SurfaceID
	output  *Output

	bufferLocked       bool
	discardFrontBuffer bool

	current    *Buffer
	damage     region.Region
	next       *Buffer
	nextDamage region.Region
	hasNext    bool

	// SurfaceChanged is emitted when the view is attached to a
	// surface or detached from one. The value is nil after a detach.
	SurfaceChanged signal.Signal[*Surface]

	// SurfaceDestroyed is emitted when the protocol object of the
	// view's surface is destroyed, just before the view is detached.
	SurfaceDestroyed signal.Signal[*View]
}

func NewView(server *Server, output *Output) *View {
	return &View{
		server: server,
		output: output,
	}
}

// Attach makes v show s. It is detached from its previous surface
// first. Attaching to a surface whose protocol object has already been
// destroyed panics.
func (v *View) Attach(s *Surface) {
	if s == nil {
		v.Detach()
		return
	}
	if s.destroyed {
		panic("wl: view attached to destroyed surface")
	}
	if v.surface == s.sid {
		return
	}

	v.Detach()
	v.surface = s.sid
	s.addView(v)

	v.setNext(s.current.Buffer, region.Region{})
	v.hasNext = s.current.Buffer != nil
	v.SurfaceChanged.Emit(s)
}

// Detach stops v from showing its surface. The buffers that it holds
// are kept until the next Advance.
func (v *View) Detach() {
	s := v.Surface()
	if s == nil {
		v.surface = 0
		return
	}

	v.surface = 0
	s.removeView(v)
	v.SurfaceChanged.Emit(nil)
}

// Surface returns the surface that v is showing, or nil.
func (v *View) Surface() *Surface {
	if v.surface == 0 {
		return nil
	}
	return v.server.Surface(v.surface)
}

func (v *View) Output() *Output {
	return v.output
}

func (v *View) SetOutput(o *Output) {
	v.output = o
}

// BufferLocked reports whether v is holding on to its current buffer.
// While locked, newly committed buffers are stored but Advance does
// not switch to them.
func (v *View) BufferLocked() bool {
	return v.bufferLocked
}

func (v *View) SetBufferLocked(locked bool) {
	v.bufferLocked = locked
}

// DiscardFrontBuffer reports whether v drops its current buffer as
// soon as its surface loses its content, instead of continuing to show
// the last frame.
func (v *View) DiscardFrontBuffer() bool {
	return v.discardFrontBuffer
}

func (v *View) SetDiscardFrontBuffer(discard bool) {
	v.discardFrontBuffer = discard
	if discard {
		s := v.Surface()
		if (s == nil) || !s.HasContent() {
			v.clearFront()
		}
	}
}

// Advance switches to the most recently committed buffer. It returns
// false if there was nothing new or the buffer is locked.
func (v *View) Advance() bool {
	if !v.hasNext || v.bufferLocked {
		return false
	}

	v.current.Unlock()
	v.current = v.next
	v.damage = v.nextDamage
	v.next = nil
	v.nextDamage = region.Region{}
	v.hasNext = false
	return true
}

// CurrentBuffer returns the buffer that the view is showing.
func (v *View) CurrentBuffer() *Buffer {
	return v.current
}

// CurrentDamage returns the damage that came with the current buffer.
func (v *View) CurrentDamage() region.Region {
	return v.damage
}

func (v *View) setNext(b *Buffer, damage region.Region) {
	b.Lock()
	v.next.Unlock()
	v.next = b
	v.nextDamage = damage
}

func (v *View) bufferCommitted(b *Buffer, damage region.Region) {
	if v.hasNext && !v.bufferLocked {
		logger.Debug("view skipped a committed buffer", "surface", v.surface)
	}

	v.setNext(b, damage)
	v.hasNext = true
}

func (v *View) contentChanged(hasContent bool) {
	if !hasContent && v.discardFrontBuffer {
		v.clearFront()
	}
}

func (v *View) clearFront() {
	v.current.Unlock()
	v.current = nil
	v.damage = region.Region{}
}

func (v *View) surfaceDestroyed(s *Surface) {
	v.SurfaceDestroyed.Emit(v)
	if v.discardFrontBuffer {
		v.clearFront()
	}
	if v.surface == s.sid {
		v.surface = 0
		s.removeView(v)
		v.SurfaceChanged.Emit(nil)
	}
}

// Release drops the buffers that v holds. It should be called when the
// view is no longer needed.
func (v *View) Release() {
	v.Detach()
	v.clearFront()
	v.next.Unlock()
	v.next = nil
	v.hasNext = false
}
