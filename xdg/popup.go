package xdg

import (
	"image"

	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/slices"
)

// PopupConfigure is a popup configure that has been sent to the client.
// The geometry is relative to the window geometry of the parent.
type PopupConfigure struct {
	Serial   uint32
	Geometry image.Rectangle
}

// Popup is an xdg_popup, a short-lived surface such as a menu that is
// placed relative to a parent surface.
type Popup struct {
	wl.Resource
	xdg        *Surface
	parent     *Surface
	positioner PositionerData
	destroyed  bool
	grabbed    bool

	pending []PopupConfigure
	sent    PopupConfigure
	acked   PopupConfigure

	// Grab is emitted with the serial of the input event that the
	// client wants an explicit grab for.
	Grab signal.Signal[uint32]

	// Repositioned is emitted with the client's token after a new
	// positioner has been applied.
	Repositioned signal.Signal[uint32]

	// GeometryChanged is emitted when the client acknowledges a
	// configure that changes the geometry.
	GeometryChanged signal.Signal[image.Rectangle]

	Destroyed signal.Signal[*Popup]
}

func newPopup(xs *Surface, id uint32, parent *Surface, positioner PositionerData) *Popup {
	return &Popup{
		Resource:   wl.NewResource(xs.Client(), PopupInterface, xs.Version(), id),
		xdg:        xs,
		parent:     parent,
		positioner: positioner,
	}
}

func (p *Popup) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opPopupDestroy:
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		return p.Destroy()

	case opPopupGrab:
		msg.ReadUint() // seat
		serial := msg.ReadUint()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		return p.RequestGrab(serial)

	case opPopupReposition:
		id := msg.ReadUint()
		token := msg.ReadUint()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}

		positioner, ok := p.Client().Get(id).(*Positioner)
		if !ok {
			return wire.ProtocolErrorf(p.Client().Display(), wl.DisplayErrorInvalidObject, "object %v is not an xdg_positioner", id)
		}
		return p.Reposition(positioner.Data(), token)

	default:
		return wl.UnknownOp(p, msg)
	}
}

func (p *Popup) MethodName(op uint16) string {
	switch op {
	case opPopupDestroy:
		return "destroy"
	case opPopupGrab:
		return "grab"
	case opPopupReposition:
		return "reposition"
	default:
		return "unknown method"
	}
}

func (p *Popup) Delete() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	p.pending = nil
	if p.parent != nil {
		p.parent.removePopup(p)
	}
	if p.xdg.popup == p {
		p.xdg.popup = nil
	}
	p.Destroyed.Emit(p)
}

// Destroy handles a destroy request from the client. Only the topmost
// popup of a chain, the one without child popups of its own, may be
// destroyed.
func (p *Popup) Destroy() error {
	if len(p.xdg.popups) > 0 {
		return p.xdg.base.Errorf(WmBaseErrorNotTheTopmostPopup, "%v destroyed while it still has %v child popups", p, len(p.xdg.popups))
	}
	p.Client().Delete(p.ID())
	return nil
}

func (p *Popup) parentDestroyed() {
	p.parent = nil
	p.SendPopupDone()
}

// XdgSurface returns the xdg_surface that p is the role object of.
func (p *Popup) XdgSurface() *Surface {
	return p.xdg
}

// Parent returns the xdg_surface that the popup is placed relative to.
// It is nil if the client didn't give one or if the parent has been
// destroyed.
func (p *Popup) Parent() *Surface {
	return p.parent
}

// Positioner returns the positioner data that the popup was created or
// last repositioned with.
func (p *Popup) Positioner() PositionerData {
	return p.positioner
}

func (p *Popup) IsDestroyed() bool {
	return p.destroyed
}

// IsGrabbed reports whether the client has asked for an explicit grab.
func (p *Popup) IsGrabbed() bool {
	return p.grabbed
}

// Geometry returns the most recently acknowledged geometry.
func (p *Popup) Geometry() image.Rectangle {
	return p.acked.Geometry
}

// LastSent returns the most recently sent configure.
func (p *Popup) LastSent() PopupConfigure {
	return p.sent
}

// Pending returns the configures that have not been acknowledged yet,
// oldest first.
func (p *Popup) Pending() []PopupConfigure {
	return slices.Clone(p.pending)
}

// RequestGrab records a request for an explicit grab. It must be made
// before the popup is mapped.
func (p *Popup) RequestGrab(serial uint32) error {
	if p.xdg.surface.HasContent() {
		return p.Errorf(PopupErrorInvalidGrab, "%v requested a grab after being mapped", p)
	}

	p.grabbed = true
	p.Grab.Emit(serial)
	return nil
}

// Reposition replaces the positioner of the popup and configures it
// again. The token is echoed back to the client.
func (p *Popup) Reposition(positioner PositionerData, token uint32) error {
	if !positioner.IsComplete() {
		return p.xdg.base.Errorf(WmBaseErrorInvalidPositioner, "incomplete positioner %v", positioner)
	}
	p.positioner = positioner

	msg := p.NewEvent(evPopupRepositioned, "repositioned", token)
	msg.WriteUint(token)
	p.Post(msg)
	p.Repositioned.Emit(token)

	p.SendConfigure(p.xdg.base.shell.place(p))
	return nil
}

// SendConfigure tells the client where the popup is. It is followed by
// an xdg_surface.configure carrying the returned serial.
func (p *Popup) SendConfigure(geometry image.Rectangle) uint32 {
	serial := p.xdg.base.shell.server.NextSerial()
	ev := PopupConfigure{
		Serial:   serial,
		Geometry: geometry,
	}
	p.pending = append(p.pending, ev)
	p.sent = ev

	x, y := int32(geometry.Min.X), int32(geometry.Min.Y)
	w, h := int32(geometry.Dx()), int32(geometry.Dy())
	msg := p.NewEvent(evPopupConfigure, "configure", x, y, w, h)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(w)
	msg.WriteInt(h)
	p.Post(msg)

	p.xdg.sendConfigure(serial)
	return serial
}

// SendPopupDone tells the client that the popup has been dismissed.
// The popup remains until the client destroys it.
func (p *Popup) SendPopupDone() {
	p.Post(p.NewEvent(evPopupPopupDone, "popup_done"))
}

func (p *Popup) ackConfigure(serial uint32) error {
	ev, rest, ok := ackQueue(p.pending, serial, func(ev PopupConfigure) uint32 { return ev.Serial })
	if !ok {
		return p.xdg.invalidSerial(serial)
	}
	p.pending = rest

	old := p.acked
	p.acked = ev
	if ev.Geometry != old.Geometry {
		p.GeometryChanged.Emit(ev.Geometry)
	}
	return nil
}
