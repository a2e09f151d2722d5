package xdg

import (
	"fmt"
	"image"

	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/wire"
)

// PositionerData describes where a popup should be placed relative to
// its parent's window geometry.
type PositionerData struct {
	Size                 image.Point
	AnchorRect           image.Rectangle
	Anchor               Edges
	Gravity              Edges
	ConstraintAdjustment ConstraintAdjustment
	Offset               image.Point

	Reactive        bool
	ParentSize      image.Point
	ParentConfigure uint32
}

// IsComplete reports whether both the size and the anchor rectangle
// have been set.
func (p PositionerData) IsComplete() bool {
	return (p.Size.X > 0) && (p.Size.Y > 0) && (p.AnchorRect.Dx() > 0) && (p.AnchorRect.Dy() > 0)
}

// AnchorPoint is the point on the anchor rectangle that the popup is
// positioned relative to. An axis without an anchor edge uses the
// middle of the rectangle.
func (p PositionerData) AnchorPoint() image.Point {
	r := p.AnchorRect

	var pt image.Point
	switch {
	case p.Anchor.Has(EdgeTop):
		pt.Y = r.Min.Y
	case p.Anchor.Has(EdgeBottom):
		pt.Y = r.Max.Y
	default:
		pt.Y = r.Min.Y + r.Dy()/2
	}

	switch {
	case p.Anchor.Has(EdgeLeft):
		pt.X = r.Min.X
	case p.Anchor.Has(EdgeRight):
		pt.X = r.Max.X
	default:
		pt.X = r.Min.X + r.Dx()/2
	}

	return pt
}

func (p PositionerData) gravityOffset() image.Point {
	var off image.Point
	switch {
	case p.Gravity.Has(EdgeTop):
		off.Y = -p.Size.Y
	case !p.Gravity.Has(EdgeBottom):
		off.Y = -p.Size.Y / 2
	}

	switch {
	case p.Gravity.Has(EdgeLeft):
		off.X = -p.Size.X
	case !p.Gravity.Has(EdgeRight):
		off.X = -p.Size.X / 2
	}

	return off
}

// UnconstrainedPosition is the top-left corner of the popup before any
// constraint adjustment is applied.
func (p PositionerData) UnconstrainedPosition() image.Point {
	return p.AnchorPoint().Add(p.gravityOffset()).Add(p.Offset)
}

// UnconstrainedGeometry is the rectangle of the popup before any
// constraint adjustment is applied.
func (p PositionerData) UnconstrainedGeometry() image.Rectangle {
	pos := p.UnconstrainedPosition()
	return image.Rectangle{Min: pos, Max: pos.Add(p.Size)}
}

// Positioner is an xdg_positioner. Its data is copied into a popup
// when the popup is created, so later changes don't affect existing
// popups.
type Positioner struct {
	wl.Resource
	data PositionerData
}

func (p *Positioner) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opPositionerDestroy:
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.Client().Delete(p.ID())
		return nil

	case opPositionerSetSize:
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		return p.SetSize(image.Pt(int(w), int(h)))

	case opPositionerSetAnchorRect:
		x := msg.ReadInt()
		y := msg.ReadInt()
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		if (w < 0) || (h < 0) {
			return p.Errorf(PositionerErrorInvalidInput, "anchor rect must not have a negative size, got %vx%v", w, h)
		}
		return p.SetAnchorRect(image.Rect(int(x), int(y), int(x+w), int(y+h)))

	case opPositionerSetAnchor, opPositionerSetGravity:
		v := msg.ReadUint()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}

		edges, ok := EdgesFromWire(v)
		if !ok {
			return p.Errorf(PositionerErrorInvalidInput, "invalid %v value %v", p.MethodName(msg.Op()), v)
		}
		if msg.Op() == opPositionerSetAnchor {
			return p.SetAnchor(edges)
		}
		return p.SetGravity(edges)

	case opPositionerSetConstraintAdjustment:
		v := msg.ReadUint()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.data.ConstraintAdjustment = ConstraintAdjustment(v) & constraintAdjustmentAll
		return nil

	case opPositionerSetOffset:
		x := msg.ReadInt()
		y := msg.ReadInt()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.data.Offset = image.Pt(int(x), int(y))
		return nil

	case opPositionerSetReactive:
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.data.Reactive = true
		return nil

	case opPositionerSetParentSize:
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.data.ParentSize = image.Pt(int(w), int(h))
		return nil

	case opPositionerSetParentConfigure:
		serial := msg.ReadUint()
		if err := wl.CheckMessage(p, msg); err != nil {
			return err
		}
		p.data.ParentConfigure = serial
		return nil

	default:
		return wl.UnknownOp(p, msg)
	}
}

func (p *Positioner) MethodName(op uint16) string {
	switch op {
	case opPositionerDestroy:
		return "destroy"
	case opPositionerSetSize:
		return "set_size"
	case opPositionerSetAnchorRect:
		return "set_anchor_rect"
	case opPositionerSetAnchor:
		return "set_anchor"
	case opPositionerSetGravity:
		return "set_gravity"
	case opPositionerSetConstraintAdjustment:
		return "set_constraint_adjustment"
	case opPositionerSetOffset:
		return "set_offset"
	case opPositionerSetReactive:
		return "set_reactive"
	case opPositionerSetParentSize:
		return "set_parent_size"
	case opPositionerSetParentConfigure:
		return "set_parent_configure"
	default:
		return "unknown method"
	}
}

func (p *Positioner) Delete() {}

func (p *Positioner) Data() PositionerData {
	return p.data
}

func (p *Positioner) SetSize(size image.Point) error {
	if (size.X <= 0) || (size.Y <= 0) {
		return p.Errorf(PositionerErrorInvalidInput, "size must be positive, got %v", size)
	}
	p.data.Size = size
	return nil
}

func (p *Positioner) SetAnchorRect(r image.Rectangle) error {
	if (r.Dx() < 0) || (r.Dy() < 0) {
		return p.Errorf(PositionerErrorInvalidInput, "anchor rect must not have a negative size, got %v", r)
	}
	p.data.AnchorRect = r
	return nil
}

func (p *Positioner) SetAnchor(edges Edges) error {
	if !edges.Valid() {
		return p.Errorf(PositionerErrorInvalidInput, "anchor %v has opposite edges", edges)
	}
	p.data.Anchor = edges
	return nil
}

func (p *Positioner) SetGravity(edges Edges) error {
	if !edges.Valid() {
		return p.Errorf(PositionerErrorInvalidInput, "gravity %v has opposite edges", edges)
	}
	p.data.Gravity = edges
	return nil
}

func (p PositionerData) String() string {
	return fmt.Sprintf("{size %v, anchor rect %v, anchor %v, gravity %v, offset %v}", p.Size, p.AnchorRect, p.Anchor, p.Gravity, p.Offset)
}
