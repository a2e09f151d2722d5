package xdg

import (
	"image"

	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/internal/xslices"
	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/slices"
)

// Surface is an xdg_surface. It handles the commits of its wl_surface
// and gives it either a toplevel or a popup role.
type Surface struct {
	wl.Resource
	base    *WmBase
	surface *wl.Surface

	pendingGeometry    image.Rectangle
	hasPendingGeometry bool
	geometry           image.Rectangle
	fallback           bool

	constructed bool
	configured  bool
	destroyed   bool
	toplevel    *Toplevel
	popup       *Popup
	popups      []*Popup

	unwatch func()

	// WindowGeometryChanged is emitted by a commit that changes the
	// window geometry.
	WindowGeometryChanged signal.Signal[image.Rectangle]

	// Acked is emitted with the serial of every configure that the
	// client acknowledges.
	Acked signal.Signal[uint32]

	Destroyed signal.Signal[*Surface]
}

func newSurface(base *WmBase, id uint32, s *wl.Surface) *Surface {
	return &Surface{
		Resource: wl.NewResource(base.Client(), SurfaceInterface, base.Version(), id),
		base:     base,
		surface:  s,
		geometry: image.Rectangle{Max: s.DestinationSize()},
		fallback: true,
	}
}

func (xs *Surface) attach() {
	xs.surface.SetRoleHandler(xs)
	xs.unwatch = xs.surface.Destroyed.Connect(func(s *wl.Surface) {
		logger.Warn("wl_surface destroyed before its xdg_surface", "surface", s, "xdg_surface", xs)
	})
}

func (xs *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opSurfaceDestroy:
		if err := wl.CheckMessage(xs, msg); err != nil {
			return err
		}
		return xs.Destroy()

	case opSurfaceGetToplevel:
		id := msg.ReadUint()
		if err := wl.CheckMessage(xs, msg); err != nil {
			return err
		}
		_, err := xs.GetToplevel(id)
		return err

	case opSurfaceGetPopup:
		id := msg.ReadUint()
		parentID := msg.ReadUint()
		positionerID := msg.ReadUint()
		if err := wl.CheckMessage(xs, msg); err != nil {
			return err
		}

		var parent *Surface
		if parentID != 0 {
			p, ok := xs.Client().Get(parentID).(*Surface)
			if !ok {
				return wire.ProtocolErrorf(xs.Client().Display(), wl.DisplayErrorInvalidObject, "object %v is not an xdg_surface", parentID)
			}
			parent = p
		}

		positioner, ok := xs.Client().Get(positionerID).(*Positioner)
		if !ok {
			return wire.ProtocolErrorf(xs.Client().Display(), wl.DisplayErrorInvalidObject, "object %v is not an xdg_positioner", positionerID)
		}

		_, err := xs.GetPopup(id, parent, positioner.Data())
		return err

	case opSurfaceSetWindowGeometry:
		x := msg.ReadInt()
		y := msg.ReadInt()
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := wl.CheckMessage(xs, msg); err != nil {
			return err
		}
		if (w <= 0) || (h <= 0) {
			return xs.base.shell.check(xs.Errorf(SurfaceErrorInvalidSize, "window geometry must have a positive size, got %vx%v", w, h))
		}
		return xs.base.shell.check(xs.SetWindowGeometry(image.Rect(int(x), int(y), int(x+w), int(y+h))))

	case opSurfaceAckConfigure:
		serial := msg.ReadUint()
		if err := wl.CheckMessage(xs, msg); err != nil {
			return err
		}
		return xs.AckConfigure(serial)

	default:
		return wl.UnknownOp(xs, msg)
	}
}

func (xs *Surface) MethodName(op uint16) string {
	switch op {
	case opSurfaceDestroy:
		return "destroy"
	case opSurfaceGetToplevel:
		return "get_toplevel"
	case opSurfaceGetPopup:
		return "get_popup"
	case opSurfaceSetWindowGeometry:
		return "set_window_geometry"
	case opSurfaceAckConfigure:
		return "ack_configure"
	default:
		return "unknown method"
	}
}

func (xs *Surface) Delete() {
	if xs.destroyed {
		return
	}
	xs.destroyed = true

	if xs.surface.RoleHandler() == wl.RoleHandler(xs) {
		xs.surface.SetRoleHandler(nil)
	}
	xs.unwatch()

	for _, p := range slices.Clone(xs.popups) {
		p.parentDestroyed()
	}

	xs.base.removeSurface(xs)
	xs.Destroyed.Emit(xs)
}

// Destroy handles a destroy request from the client. The role object
// has to be destroyed first.
func (xs *Surface) Destroy() error {
	if (xs.toplevel != nil) || (xs.popup != nil) {
		return xs.Errorf(SurfaceErrorDefunctRoleObject, "%v destroyed before its role object", xs)
	}
	xs.Client().Delete(xs.ID())
	return nil
}

// GetToplevel gives the surface the toplevel role.
func (xs *Surface) GetToplevel(id uint32) (*Toplevel, error) {
	if xs.constructed {
		return nil, xs.Errorf(SurfaceErrorAlreadyConstructed, "%v already has a role object", xs)
	}
	if err := xs.surface.SetRole(wl.RoleToplevel, xs.base, WmBaseErrorRole); err != nil {
		return nil, err
	}

	t := newToplevel(xs, id)
	if err := xs.Client().Add(t); err != nil {
		return nil, err
	}
	xs.constructed = true
	xs.toplevel = t

	shell := xs.base.shell
	shell.toplevels = append(shell.toplevels, t)
	shell.NewToplevel.Emit(t)
	return t, nil
}

// GetPopup gives the surface the popup role. The parent may be nil if
// it will be set by some other protocol. The popup is configured
// immediately.
func (xs *Surface) GetPopup(id uint32, parent *Surface, positioner PositionerData) (*Popup, error) {
	if xs.constructed {
		return nil, xs.Errorf(SurfaceErrorAlreadyConstructed, "%v already has a role object", xs)
	}
	if !positioner.IsComplete() {
		return nil, xs.base.Errorf(WmBaseErrorInvalidPositioner, "incomplete positioner %v", positioner)
	}
	if parent != nil {
		bounds := image.Rectangle{Max: parent.geometry.Size()}
		if !positioner.AnchorRect.In(bounds) {
			err := xs.base.shell.check(xs.base.Errorf(WmBaseErrorInvalidPositioner, "anchor rect %v is outside of parent geometry %v", positioner.AnchorRect, bounds))
			if err != nil {
				return nil, err
			}
		}
	}
	if err := xs.surface.SetRole(wl.RolePopup, xs.base, WmBaseErrorRole); err != nil {
		return nil, err
	}

	p := newPopup(xs, id, parent, positioner)
	if err := xs.Client().Add(p); err != nil {
		return nil, err
	}
	xs.constructed = true
	xs.popup = p
	if parent != nil {
		parent.popups = append(parent.popups, p)
	}

	shell := xs.base.shell
	shell.NewPopup.Emit(p)
	p.SendConfigure(shell.place(p))
	return p, nil
}

func (xs *Surface) removePopup(p *Popup) {
	xs.popups = xslices.Remove(xs.popups, p)
}

// SetWindowGeometry sets the pending window geometry, which is applied
// by the next commit. Once it has been set, the geometry no longer
// follows the size of the surface.
func (xs *Surface) SetWindowGeometry(r image.Rectangle) error {
	if (r.Dx() <= 0) || (r.Dy() <= 0) {
		return xs.Errorf(SurfaceErrorInvalidSize, "window geometry must have a positive size, got %v", r)
	}

	xs.pendingGeometry = r
	xs.hasPendingGeometry = true
	return nil
}

// WindowGeometry is the part of the surface that is the window itself,
// excluding decorations such as shadows, in surface-local coordinates.
func (xs *Surface) WindowGeometry() image.Rectangle {
	return xs.geometry
}

// AckConfigure acknowledges the configure event with the given serial
// and every configure event that was sent before it.
func (xs *Surface) AckConfigure(serial uint32) error {
	var err error
	switch {
	case xs.toplevel != nil:
		err = xs.toplevel.ackConfigure(serial)
	case xs.popup != nil:
		err = xs.popup.ackConfigure(serial)
	default:
		return xs.Errorf(SurfaceErrorNotConstructed, "%v has no role object", xs)
	}
	if err != nil {
		return err
	}

	xs.configured = true
	xs.Acked.Emit(serial)
	return nil
}

func (xs *Surface) invalidSerial(serial uint32) error {
	return xs.Errorf(SurfaceErrorInvalidSerial, "serial %v does not match a pending configure of %v", serial, xs)
}

func (xs *Surface) sendConfigure(serial uint32) {
	msg := xs.NewEvent(evSurfaceConfigure, "configure", serial)
	msg.WriteUint(serial)
	xs.Post(msg)
}

// PreCommit rejects buffers that are attached before the first
// configure has been acknowledged.
func (xs *Surface) PreCommit(pending *wl.SurfaceState) error {
	if pending.NewlyAttached && (pending.Buffer != nil) && !xs.configured {
		return xs.Errorf(SurfaceErrorUnconfiguredBuffer, "%v committed a buffer before acknowledging a configure", xs)
	}
	return nil
}

// PostCommit applies the pending window geometry.
func (xs *Surface) PostCommit() {
	old := xs.geometry
	switch {
	case xs.hasPendingGeometry:
		xs.geometry = xs.pendingGeometry
		xs.hasPendingGeometry = false
		xs.fallback = false
	case xs.fallback:
		xs.geometry = image.Rectangle{Max: xs.surface.DestinationSize()}
	}

	if xs.geometry != old {
		xs.WindowGeometryChanged.Emit(xs.geometry)
	}
}

// Surface returns the wl_surface that xs was created for.
func (xs *Surface) Surface() *wl.Surface {
	return xs.surface
}

func (xs *Surface) Shell() *Shell {
	return xs.base.shell
}

// Toplevel returns the toplevel role object, or nil.
func (xs *Surface) Toplevel() *Toplevel {
	return xs.toplevel
}

// Popup returns the popup role object, or nil.
func (xs *Surface) Popup() *Popup {
	return xs.popup
}

// Popups returns the popups that have xs as their parent, oldest
// first.
func (xs *Surface) Popups() []*Popup {
	return slices.Clone(xs.popups)
}

// IsConfigured reports whether the client has acknowledged at least
// one configure.
func (xs *Surface) IsConfigured() bool {
	return xs.configured
}

func (xs *Surface) IsDestroyed() bool {
	return xs.destroyed
}

// ackQueue finds the entry with the given serial. It and every entry
// before it are removed from the queue.
func ackQueue[T any](queue []T, serial uint32, serialOf func(T) uint32) (acked T, rest []T, ok bool) {
	i := slices.IndexFunc(queue, func(v T) bool { return serialOf(v) == serial })
	if i < 0 {
		return acked, queue, false
	}
	return queue[i], queue[i+1:], true
}
