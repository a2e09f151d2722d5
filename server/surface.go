package wl

import (
	"image"

	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/internal/xslices"
	"deedles.dev/wlcore/region"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/slices"
)

// SurfaceID identifies a surface for as long as it has not been freed.
// IDs are never reused.
type SurfaceID uint64

// Surface is a wl_surface: a rectangular area that a client draws into
// by attaching buffers. Its state is double-buffered. Requests modify
// the pending state, and Commit applies it atomically.
//
// A surface is kept alive by its protocol object and by references
// taken with Ref, including those held by attached views. It is freed
// once both are gone. Destroying the protocol object detaches every
// view.
type Surface struct {
	Resource
	server *Server
	sid    SurfaceID

	pending SurfaceState
	current SurfaceState

	refs      int
	destroyed bool
	freed     bool

	role        Role
	roleHandler RoleHandler

	views    []*View
	parent   *Surface
	children []*Surface

	pendingFrames []*Callback
	frames        []*Callback

	unwatchPending func()

	BufferSizeChanged      signal.Signal[image.Point]
	BufferScaleChanged     signal.Signal[int32]
	DestinationSizeChanged signal.Signal[image.Point]
	SourceGeometryChanged  signal.Signal[image.Rectangle]
	OpaqueChanged          signal.Signal[bool]
	HasContentChanged      signal.Signal[bool]
	Mapped                 signal.Signal[*Surface]
	Unmapped               signal.Signal[*Surface]
	RedrawRequested        signal.Signal[*Surface]
	Committed              signal.Signal[*Surface]
	RoleChanged            signal.Signal[Role]

	// Destroyed is emitted when the protocol object is destroyed,
	// before views are detached.
	Destroyed signal.Signal[*Surface]

	// Freed is emitted when the last reference is dropped.
	Freed signal.Signal[SurfaceID]
}

// NewSurface creates a surface owned by client with the given protocol
// object ID.
func NewSurface(client *Client, version, id uint32) (*Surface, error) {
	s := Surface{
		Resource: NewResource(client, SurfaceInterface, version, id),
		server:   client.server,
		pending:  initialSurfaceState(),
		current:  initialSurfaceState(),
		refs:     1,
	}
	if err := client.Add(&s); err != nil {
		return nil, err
	}
	client.server.addSurface(&s)
	return &s, nil
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opSurfaceDestroy:
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		s.client.Delete(s.id)
		return nil

	case opSurfaceAttach:
		id := msg.ReadUint()
		x := msg.ReadInt()
		y := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}

		var buffer *Buffer
		if id != 0 {
			b, ok := s.client.Get(id).(*Buffer)
			if !ok {
				return wire.ProtocolErrorf(s.client.display, DisplayErrorInvalidObject, "object %v is not a wl_buffer", id)
			}
			buffer = b
		}
		return s.Attach(buffer, x, y)

	case opSurfaceDamage, opSurfaceDamageBuffer:
		x := msg.ReadInt()
		y := msg.ReadInt()
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}

		if (w <= 0) || (h <= 0) {
			return nil
		}

		rect := image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
		if msg.Op() == opSurfaceDamage {
			s.Damage(rect)
		} else {
			s.DamageBuffer(rect)
		}
		return nil

	case opSurfaceFrame:
		id := msg.ReadUint()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		return s.Frame(id)

	case opSurfaceSetOpaqueRegion, opSurfaceSetInputRegion:
		id := msg.ReadUint()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}

		r, err := s.client.regionArg(id)
		if err != nil {
			return err
		}
		if msg.Op() == opSurfaceSetOpaqueRegion {
			s.SetOpaqueRegion(r)
		} else {
			s.SetInputRegion(r)
		}
		return nil

	case opSurfaceCommit:
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		return s.Commit()

	case opSurfaceSetBufferTransform:
		t := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		return s.SetBufferTransform(Transform(t))

	case opSurfaceSetBufferScale:
		scale := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		return s.SetBufferScale(scale)

	case opSurfaceOffset:
		x := msg.ReadInt()
		y := msg.ReadInt()
		if err := CheckMessage(s, msg); err != nil {
			return err
		}
		s.SetOffset(x, y)
		return nil

	default:
		return UnknownOp(s, msg)
	}
}

func (s *Surface) MethodName(op uint16) string {
	switch op {
	case opSurfaceDestroy:
		return "destroy"
	case opSurfaceAttach:
		return "attach"
	case opSurfaceDamage:
		return "damage"
	case opSurfaceFrame:
		return "frame"
	case opSurfaceSetOpaqueRegion:
		return "set_opaque_region"
	case opSurfaceSetInputRegion:
		return "set_input_region"
	case opSurfaceCommit:
		return "commit"
	case opSurfaceSetBufferTransform:
		return "set_buffer_transform"
	case opSurfaceSetBufferScale:
		return "set_buffer_scale"
	case opSurfaceDamageBuffer:
		return "damage_buffer"
	case opSurfaceOffset:
		return "offset"
	default:
		return "unknown method"
	}
}

// Delete destroys the protocol object. Pending frame callbacks are
// destroyed without firing and every view is detached. The surface
// itself stays allocated while references to it remain.
func (s *Surface) Delete() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.Destroyed.Emit(s)

	frames := make([]*Callback, 0, len(s.pendingFrames)+len(s.frames))
	frames = append(frames, s.pendingFrames...)
	frames = append(frames, s.frames...)
	s.pendingFrames = nil
	s.frames = nil
	for _, cb := range frames {
		s.client.Delete(cb.id)
	}

	s.watchPending(nil)
	s.pending.resetPerCommit()

	for _, v := range slices.Clone(s.views) {
		v.surfaceDestroyed(s)
	}

	if s.parent != nil {
		s.parent.RemoveChild(s)
	}
	for _, c := range s.children {
		c.parent = nil
	}
	s.children = nil

	s.Unref()
}

// SurfaceID returns the ID that the surface can be looked up with via
// Server.Surface.
func (s *Surface) SurfaceID() SurfaceID {
	return s.sid
}

func (s *Surface) Server() *Server {
	return s.server
}

// IsDestroyed reports whether the protocol object has been destroyed.
func (s *Surface) IsDestroyed() bool {
	return s.destroyed
}

// Ref takes a reference that keeps the surface allocated after its
// protocol object is destroyed.
func (s *Surface) Ref() {
	if s.freed {
		panic("wl: Ref of freed surface")
	}
	s.refs++
}

// Unref drops a reference taken with Ref.
func (s *Surface) Unref() {
	if s.refs <= 0 {
		panic("wl: Unref of freed surface")
	}

	s.refs--
	if s.refs > 0 {
		return
	}
	if len(s.views) > 0 {
		panic("wl: surface freed with views attached")
	}

	s.current.Buffer.Unlock()
	s.current.Buffer = nil
	s.freed = true
	s.server.freeSurface(s)
	s.Freed.Emit(s.sid)
}

// Attach sets the pending buffer. A nil buffer unmaps the surface at
// the next commit. Since version 5, the offset must be set with
// SetOffset instead.
func (s *Surface) Attach(buffer *Buffer, dx, dy int32) error {
	if (s.version >= 5) && ((dx != 0) || (dy != 0)) {
		return s.Errorf(SurfaceErrorInvalidOffset, "attach offset (%v, %v) is not allowed since version 5", dx, dy)
	}

	s.pending.Buffer = buffer
	s.pending.NewlyAttached = true
	s.pending.Offset = image.Pt(int(dx), int(dy))
	s.watchPending(buffer)
	return nil
}

// A pending buffer that is destroyed before the commit is treated as
// if a nil buffer had been attached.
func (s *Surface) watchPending(buffer *Buffer) {
	if s.unwatchPending != nil {
		s.unwatchPending()
		s.unwatchPending = nil
	}
	if buffer == nil {
		return
	}

	s.unwatchPending = buffer.Destroyed.Connect(func(b *Buffer) {
		if s.pending.Buffer == b {
			s.pending.Buffer = nil
		}
	})
}

func (s *Surface) SetOffset(dx, dy int32) {
	s.pending.Offset = image.Pt(int(dx), int(dy))
}

// Damage marks a rectangle in surface-local coordinates as changed.
func (s *Surface) Damage(rect image.Rectangle) {
	s.addDamage(rect, false)
}

// DamageBuffer marks a rectangle in buffer coordinates as changed.
func (s *Surface) DamageBuffer(rect image.Rectangle) {
	s.addDamage(rect, true)
}

func (s *Surface) addDamage(rect image.Rectangle, inBuffer bool) {
	if !s.pending.Damage.Empty() && (s.pending.DamageInBuffer != inBuffer) {
		logger.Debug("surface and buffer damage mixed in one commit", "surface", s)
	}

	s.pending.Damage = s.pending.Damage.AddRect(rect)
	s.pending.DamageInBuffer = inBuffer
}

// Frame requests a callback for when it is a good time to draw the
// next frame. The callback is armed by the next commit.
func (s *Surface) Frame(id uint32) error {
	cb := newCallback(s.client, id)
	if err := s.client.Add(cb); err != nil {
		return err
	}
	s.pendingFrames = append(s.pendingFrames, cb)
	return nil
}

// SetOpaqueRegion sets the pending opaque region. A nil region is
// empty.
func (s *Surface) SetOpaqueRegion(r *region.Region) {
	if r == nil {
		s.pending.OpaqueRegion = region.Region{}
		return
	}
	s.pending.OpaqueRegion = *r
}

// SetInputRegion sets the pending input region. A nil region is
// infinite.
func (s *Surface) SetInputRegion(r *region.Region) {
	if r == nil {
		s.pending.InputRegion = region.Region{}
		s.pending.InputInfinite = true
		return
	}
	s.pending.InputRegion = *r
	s.pending.InputInfinite = false
}

func (s *Surface) SetBufferScale(scale int32) error {
	if scale < 1 {
		return s.Errorf(SurfaceErrorInvalidScale, "buffer scale must be positive, got %v", scale)
	}
	s.pending.BufferScale = scale
	return nil
}

func (s *Surface) SetBufferTransform(t Transform) error {
	if !t.Valid() {
		return s.Errorf(SurfaceErrorInvalidTransform, "invalid buffer transform %v", int32(t))
	}
	s.pending.BufferTransform = t
	return nil
}

// SetSourceGeometry sets the pending part of the buffer to show, for
// use by viewport extensions. An empty rectangle unsets it.
func (s *Surface) SetSourceGeometry(r image.Rectangle) {
	s.pending.SourceGeometry = r
}

// Commit applies the pending state.
func (s *Surface) Commit() error {
	if s.destroyed {
		panic("wl: commit of destroyed surface")
	}

	if s.roleHandler != nil {
		err := s.roleHandler.PreCommit(&s.pending)
		if err != nil {
			return err
		}
	}

	old := s.current
	next := s.current

	if s.pending.NewlyAttached {
		next.Buffer = s.pending.Buffer
		if next.Buffer != old.Buffer {
			next.Buffer.Lock()
			old.Buffer.Unlock()
		}
	}
	next.Offset = s.pending.Offset
	next.NewlyAttached = s.pending.NewlyAttached
	next.BufferScale = s.pending.BufferScale
	next.BufferTransform = s.pending.BufferTransform
	next.SourceGeometry = s.pending.SourceGeometry

	next.BufferSize = next.Buffer.Size()
	next.DestinationSize = destinationSize(next.SourceGeometry, next.BufferSize, next.BufferScale)
	dest := image.Rectangle{Max: next.DestinationSize}

	next.Damage = surfaceDamage(s.pending.Damage, s.pending.DamageInBuffer, next.BufferScale).IntersectRect(dest)
	next.DamageInBuffer = false
	next.HasContent = next.Buffer.HasContent()

	s.frames = append(s.frames, s.pendingFrames...)
	s.pendingFrames = nil

	next.InputInfinite = s.pending.InputInfinite
	if next.InputInfinite {
		next.InputRegion = region.Rect(dest)
	} else {
		next.InputRegion = s.pending.InputRegion.IntersectRect(dest)
	}
	next.OpaqueRegion = s.pending.OpaqueRegion.IntersectRect(dest)
	next.Opaque = !dest.Empty() && next.OpaqueRegion.ContainsRect(dest)

	s.current = next
	s.watchPending(nil)
	s.pending.resetPerCommit()

	if next.Buffer != nil {
		next.Buffer.committed(next.Damage)
	}
	for _, v := range slices.Clone(s.views) {
		v.bufferCommitted(next.Buffer, next.Damage)
	}

	if s.roleHandler != nil {
		s.roleHandler.PostCommit()
	}

	s.notify(old, next)
	s.Committed.Emit(s)
	return nil
}

func (s *Surface) notify(old, next SurfaceState) {
	if next.BufferSize != old.BufferSize {
		s.BufferSizeChanged.Emit(next.BufferSize)
	}
	if next.BufferScale != old.BufferScale {
		s.BufferScaleChanged.Emit(next.BufferScale)
	}
	if next.DestinationSize != old.DestinationSize {
		s.DestinationSizeChanged.Emit(next.DestinationSize)
	}
	if next.SourceGeometry != old.SourceGeometry {
		s.SourceGeometryChanged.Emit(next.SourceGeometry)
	}
	if next.Opaque != old.Opaque {
		s.OpaqueChanged.Emit(next.Opaque)
	}
	if next.HasContent != old.HasContent {
		for _, v := range slices.Clone(s.views) {
			v.contentChanged(next.HasContent)
		}

		s.HasContentChanged.Emit(next.HasContent)
		if next.HasContent {
			s.Mapped.Emit(s)
		} else {
			s.Unmapped.Emit(s)
		}
	}
	s.RedrawRequested.Emit(s)
}

// SendFrameCallbacks fires every armed frame callback.
func (s *Surface) SendFrameCallbacks(time uint32) {
	frames := s.frames
	s.frames = nil
	for _, cb := range frames {
		cb.Done(time)
	}
}

// SetRole gives the surface a role. Giving a surface the role that it
// already has is allowed. Giving it a different one is a protocol
// error with the given code, attributed to errObj.
func (s *Surface) SetRole(role Role, errObj wire.Sender, code uint32) error {
	if role == s.role {
		return nil
	}
	if !s.role.IsZero() {
		return wire.ProtocolErrorf(errObj, code, "%v already has role %v, cannot set %v", s, s.role, role)
	}

	s.role = role
	s.RoleChanged.Emit(role)
	return nil
}

func (s *Surface) Role() Role {
	return s.role
}

// SetRoleHandler sets the object that implements the surface's current
// role. It is cleared with nil when that object is destroyed.
func (s *Surface) SetRoleHandler(h RoleHandler) {
	s.roleHandler = h
}

func (s *Surface) RoleHandler() RoleHandler {
	return s.roleHandler
}

// Current returns a copy of the committed state.
func (s *Surface) Current() SurfaceState {
	return s.current
}

// Pending returns a copy of the state that the next commit will apply.
func (s *Surface) Pending() SurfaceState {
	return s.pending
}

func (s *Surface) Buffer() *Buffer {
	return s.current.Buffer
}

func (s *Surface) BufferSize() image.Point {
	return s.current.BufferSize
}

func (s *Surface) BufferScale() int32 {
	return s.current.BufferScale
}

func (s *Surface) DestinationSize() image.Point {
	return s.current.DestinationSize
}

func (s *Surface) HasContent() bool {
	return s.current.HasContent
}

func (s *Surface) IsOpaque() bool {
	return s.current.Opaque
}

// AcceptsInput reports whether p, in surface-local coordinates, is
// inside the committed input region.
func (s *Surface) AcceptsInput(p image.Point) bool {
	return s.current.InputRegion.Contains(p)
}

// Views returns the views that are showing the surface.
func (s *Surface) Views() []*View {
	return slices.Clone(s.views)
}

func (s *Surface) addView(v *View) {
	s.views = append(s.views, v)
	s.Ref()
}

func (s *Surface) removeView(v *View) {
	s.views = xslices.Remove(s.views, v)
	s.Unref()
}

// Parent returns the surface that s is a child of, as set by an
// extension such as wl_subcompositor.
func (s *Surface) Parent() *Surface {
	return s.parent
}

func (s *Surface) Children() []*Surface {
	return slices.Clone(s.children)
}

// AddChild records child as a child of s, removing it from its
// previous parent.
func (s *Surface) AddChild(child *Surface) {
	if child.parent == s {
		return
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = s
	s.children = append(s.children, child)
}

func (s *Surface) RemoveChild(child *Surface) {
	if child.parent != s {
		return
	}
	child.parent = nil
	s.children = xslices.Remove(s.children, child)
}
