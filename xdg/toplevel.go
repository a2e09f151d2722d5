package xdg

import (
	"image"

	"deedles.dev/wlcore/internal/bin"
	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/slices"
)

// ConfigureEvent is a toplevel configure that has been sent to the
// client. A zero width or height lets the client decide.
type ConfigureEvent struct {
	Serial uint32
	Size   image.Point
	States States
}

// MenuRequest is a request to show the window menu at a point in
// window geometry coordinates.
type MenuRequest struct {
	Serial uint32
	Pos    image.Point
}

// ResizeRequest is a request to start an interactive resize.
type ResizeRequest struct {
	Serial uint32
	Edge   ResizeEdge
}

// Toplevel is an xdg_toplevel, a surface that is a window on the
// desktop.
type Toplevel struct {
	wl.Resource
	xdg       *Surface
	destroyed bool

	pending []ConfigureEvent
	sent    ConfigureEvent
	acked   ConfigureEvent

	parent  *Toplevel
	title   string
	appID   string
	minSize image.Point
	maxSize image.Point

	// Requests from the client.
	ParentChanged   signal.Signal[*Toplevel]
	TitleChanged    signal.Signal[string]
	AppIDChanged    signal.Signal[string]
	MinSizeChanged  signal.Signal[image.Point]
	MaxSizeChanged  signal.Signal[image.Point]
	StartMove       signal.Signal[uint32]
	StartResize     signal.Signal[ResizeRequest]
	ShowWindowMenu  signal.Signal[MenuRequest]
	SetMaximized    signal.Signal[*Toplevel]
	UnsetMaximized  signal.Signal[*Toplevel]
	SetFullscreen   signal.Signal[*Toplevel]
	UnsetFullscreen signal.Signal[*Toplevel]
	SetMinimized    signal.Signal[*Toplevel]

	// Acknowledged state changes.
	MaximizedChanged  signal.Signal[bool]
	FullscreenChanged signal.Signal[bool]
	ResizingChanged   signal.Signal[bool]
	ActivatedChanged  signal.Signal[bool]
	StatesChanged     signal.Signal[States]
	Acked             signal.Signal[ConfigureEvent]

	Destroyed signal.Signal[*Toplevel]
}

func newToplevel(xs *Surface, id uint32) *Toplevel {
	return &Toplevel{
		Resource: wl.NewResource(xs.Client(), ToplevelInterface, xs.Version(), id),
		xdg:      xs,
	}
}

func (t *Toplevel) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opToplevelDestroy:
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.Client().Delete(t.ID())
		return nil

	case opToplevelSetParent:
		id := msg.ReadUint()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}

		var parent *Toplevel
		if id != 0 {
			p, ok := t.Client().Get(id).(*Toplevel)
			if !ok {
				return wire.ProtocolErrorf(t.Client().Display(), wl.DisplayErrorInvalidObject, "object %v is not an xdg_toplevel", id)
			}
			parent = p
		}
		return t.SetParent(parent)

	case opToplevelSetTitle:
		title := msg.ReadString()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.title = title
		t.TitleChanged.Emit(title)
		return nil

	case opToplevelSetAppID:
		appID := msg.ReadString()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.appID = appID
		t.AppIDChanged.Emit(appID)
		return nil

	case opToplevelShowWindowMenu:
		msg.ReadUint() // seat
		serial := msg.ReadUint()
		x := msg.ReadInt()
		y := msg.ReadInt()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.ShowWindowMenu.Emit(MenuRequest{Serial: serial, Pos: image.Pt(int(x), int(y))})
		return nil

	case opToplevelMove:
		msg.ReadUint() // seat
		serial := msg.ReadUint()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.StartMove.Emit(serial)
		return nil

	case opToplevelResize:
		msg.ReadUint() // seat
		serial := msg.ReadUint()
		edge := ResizeEdge(msg.ReadUint())
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		if !edge.Valid() {
			return t.Errorf(ToplevelErrorInvalidResizeEdge, "invalid resize edge %v", uint32(edge))
		}
		t.StartResize.Emit(ResizeRequest{Serial: serial, Edge: edge})
		return nil

	case opToplevelSetMaxSize, opToplevelSetMinSize:
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}

		size := image.Pt(int(w), int(h))
		if msg.Op() == opToplevelSetMaxSize {
			return t.xdg.base.shell.check(t.SetMaxSize(size))
		}
		return t.xdg.base.shell.check(t.SetMinSize(size))

	case opToplevelSetMaximized, opToplevelUnsetMaximized, opToplevelUnsetFullscreen, opToplevelSetMinimized:
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}

		switch msg.Op() {
		case opToplevelSetMaximized:
			t.SetMaximized.Emit(t)
		case opToplevelUnsetMaximized:
			t.UnsetMaximized.Emit(t)
		case opToplevelUnsetFullscreen:
			t.UnsetFullscreen.Emit(t)
		case opToplevelSetMinimized:
			t.SetMinimized.Emit(t)
		}
		return nil

	case opToplevelSetFullscreen:
		msg.ReadUint() // output
		if err := wl.CheckMessage(t, msg); err != nil {
			return err
		}
		t.SetFullscreen.Emit(t)
		return nil

	default:
		return wl.UnknownOp(t, msg)
	}
}

func (t *Toplevel) MethodName(op uint16) string {
	switch op {
	case opToplevelDestroy:
		return "destroy"
	case opToplevelSetParent:
		return "set_parent"
	case opToplevelSetTitle:
		return "set_title"
	case opToplevelSetAppID:
		return "set_app_id"
	case opToplevelShowWindowMenu:
		return "show_window_menu"
	case opToplevelMove:
		return "move"
	case opToplevelResize:
		return "resize"
	case opToplevelSetMaxSize:
		return "set_max_size"
	case opToplevelSetMinSize:
		return "set_min_size"
	case opToplevelSetMaximized:
		return "set_maximized"
	case opToplevelUnsetMaximized:
		return "unset_maximized"
	case opToplevelSetFullscreen:
		return "set_fullscreen"
	case opToplevelUnsetFullscreen:
		return "unset_fullscreen"
	case opToplevelSetMinimized:
		return "set_minimized"
	default:
		return "unknown method"
	}
}

// Delete discards any unacknowledged configures. Children of the
// toplevel are given its parent.
func (t *Toplevel) Delete() {
	if t.destroyed {
		return
	}
	t.destroyed = true

	t.pending = nil
	if t.xdg.toplevel == t {
		t.xdg.toplevel = nil
	}
	t.xdg.base.shell.removeToplevel(t)
	t.Destroyed.Emit(t)
}

// XdgSurface returns the xdg_surface that t is the role object of.
func (t *Toplevel) XdgSurface() *Surface {
	return t.xdg
}

func (t *Toplevel) IsDestroyed() bool {
	return t.destroyed
}

func (t *Toplevel) Parent() *Toplevel {
	return t.parent
}

// SetParent makes t a child of parent, or a top-level window if parent
// is nil. A toplevel can't be its own ancestor.
func (t *Toplevel) SetParent(parent *Toplevel) error {
	for p := parent; p != nil; p = p.parent {
		if p == t {
			return t.Errorf(ToplevelErrorInvalidParent, "%v would be an ancestor of itself", t)
		}
	}
	if parent == t.parent {
		return nil
	}

	t.parent = parent
	t.ParentChanged.Emit(parent)
	return nil
}

func (t *Toplevel) Title() string {
	return t.title
}

func (t *Toplevel) AppID() string {
	return t.appID
}

// MinSize is the minimum size that the client asked for. A zero
// component has no minimum.
func (t *Toplevel) MinSize() image.Point {
	return t.minSize
}

// MaxSize is the maximum size that the client asked for. A zero
// component has no maximum.
func (t *Toplevel) MaxSize() image.Point {
	return t.maxSize
}

func (t *Toplevel) SetMinSize(size image.Point) error {
	if (size.X < 0) || (size.Y < 0) {
		return t.Errorf(ToplevelErrorInvalidSize, "minimum size %v is negative", size)
	}
	if crossed(size, t.maxSize) {
		return t.Errorf(ToplevelErrorInvalidSize, "minimum size %v is larger than maximum size %v", size, t.maxSize)
	}
	if size == t.minSize {
		return nil
	}

	t.minSize = size
	t.MinSizeChanged.Emit(size)
	return nil
}

func (t *Toplevel) SetMaxSize(size image.Point) error {
	if (size.X < 0) || (size.Y < 0) {
		return t.Errorf(ToplevelErrorInvalidSize, "maximum size %v is negative", size)
	}
	if crossed(t.minSize, size) {
		return t.Errorf(ToplevelErrorInvalidSize, "maximum size %v is smaller than minimum size %v", size, t.minSize)
	}
	if size == t.maxSize {
		return nil
	}

	t.maxSize = size
	t.MaxSizeChanged.Emit(size)
	return nil
}

func crossed(min, max image.Point) bool {
	return ((max.X > 0) && (min.X > max.X)) || ((max.Y > 0) && (min.Y > max.Y))
}

// SizeForResize returns the size that results from dragging the given
// edges of a window of the given size by delta. The result respects
// the minimum and maximum sizes and is never smaller than 1x1.
func (t *Toplevel) SizeForResize(size, delta image.Point, edges Edges) image.Point {
	switch {
	case edges.Has(EdgeLeft):
		size.X -= delta.X
	case edges.Has(EdgeRight):
		size.X += delta.X
	}
	switch {
	case edges.Has(EdgeTop):
		size.Y -= delta.Y
	case edges.Has(EdgeBottom):
		size.Y += delta.Y
	}

	size.X = clamp(size.X, t.minSize.X, t.maxSize.X)
	size.Y = clamp(size.Y, t.minSize.Y, t.maxSize.Y)
	return size
}

func clamp(v, min, max int) int {
	if v < min {
		v = min
	}
	if v < 1 {
		v = 1
	}
	if (max > 0) && (v > max) {
		v = max
	}
	return v
}

// Configured returns the most recently acknowledged configure.
func (t *Toplevel) Configured() ConfigureEvent {
	return t.acked
}

// LastSent returns the most recently sent configure, whether or not it
// has been acknowledged.
func (t *Toplevel) LastSent() ConfigureEvent {
	return t.sent
}

// Pending returns the configures that have not been acknowledged yet,
// oldest first.
func (t *Toplevel) Pending() []ConfigureEvent {
	return slices.Clone(t.pending)
}

// SendConfigure asks the client to use the given size and states. It
// is followed by an xdg_surface.configure carrying the returned serial.
func (t *Toplevel) SendConfigure(size image.Point, states States) uint32 {
	serial := t.xdg.base.shell.server.NextSerial()
	ev := ConfigureEvent{
		Serial: serial,
		Size:   size,
		States: states,
	}
	t.pending = append(t.pending, ev)
	t.sent = ev

	list := states.List()
	msg := t.NewEvent(evToplevelConfigure, "configure", int32(size.X), int32(size.Y), list)
	msg.WriteInt(int32(size.X))
	msg.WriteInt(int32(size.Y))
	msg.WriteArray(bin.Pack(list))
	t.Post(msg)

	t.xdg.sendConfigure(serial)
	return serial
}

// SendMaximized configures the toplevel as maximized at the given size.
func (t *Toplevel) SendMaximized(size image.Point) uint32 {
	return t.SendConfigure(size, t.sent.States.Without(StateFullscreen, StateResizing).With(StateMaximized))
}

// SendFullscreen configures the toplevel as fullscreen at the given
// size.
func (t *Toplevel) SendFullscreen(size image.Point) uint32 {
	return t.SendConfigure(size, t.sent.States.Without(StateMaximized, StateResizing).With(StateFullscreen))
}

// SendUnmaximized configures the toplevel as neither maximized,
// fullscreen nor resizing. A zero size lets the client choose.
func (t *Toplevel) SendUnmaximized(size image.Point) uint32 {
	return t.SendConfigure(size, t.sent.States.Without(StateMaximized, StateFullscreen, StateResizing))
}

// SendResizing configures the toplevel for an interactive resize with
// maxSize as the size that it should not exceed.
func (t *Toplevel) SendResizing(maxSize image.Point) uint32 {
	return t.SendConfigure(maxSize, t.sent.States.Without(StateMaximized, StateFullscreen).With(StateResizing))
}

// SendResizeDone ends an interactive resize at the given size.
func (t *Toplevel) SendResizeDone(size image.Point) uint32 {
	return t.SendConfigure(size, t.sent.States.Without(StateResizing))
}

// SendMaximizedOn maximizes the toplevel to the available area of o.
func (t *Toplevel) SendMaximizedOn(o *wl.Output) uint32 {
	return t.SendMaximized(o.LogicalSize())
}

// SendFullscreenOn makes the toplevel fullscreen on o.
func (t *Toplevel) SendFullscreenOn(o *wl.Output) uint32 {
	return t.SendFullscreen(o.Geometry.Size().Div(int(o.Scale)))
}

func (t *Toplevel) setActivated(active bool) {
	if t.sent.States.Has(StateActivated) == active {
		return
	}

	states := t.sent.States.Without(StateActivated)
	if active {
		states = states.With(StateActivated)
	}
	t.SendConfigure(t.sent.Size, states)
}

// SendClose asks the client to close the window.
func (t *Toplevel) SendClose() {
	t.Post(t.NewEvent(evToplevelClose, "close"))
}

func (t *Toplevel) ackConfigure(serial uint32) error {
	ev, rest, ok := ackQueue(t.pending, serial, func(ev ConfigureEvent) uint32 { return ev.Serial })
	if !ok {
		return t.xdg.invalidSerial(serial)
	}
	t.pending = rest

	old := t.acked
	t.acked = ev

	diff := old.States ^ ev.States
	for _, state := range diff.List() {
		on := ev.States.Has(state)
		switch state {
		case StateMaximized:
			t.MaximizedChanged.Emit(on)
		case StateFullscreen:
			t.FullscreenChanged.Emit(on)
		case StateResizing:
			t.ResizingChanged.Emit(on)
		case StateActivated:
			t.ActivatedChanged.Emit(on)
		}
	}
	if diff != 0 {
		t.StatesChanged.Emit(ev.States)
	}

	t.Acked.Emit(ev)
	return nil
}
