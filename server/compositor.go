package wl

import (
	"deedles.dev/wlcore/region"
	"deedles.dev/wlcore/wire"
)

// Compositor is a client's binding of the wl_compositor global.
type Compositor struct {
	Resource
}

func (server *Server) bindCompositor(client *Client, version, id uint32) error {
	c := &Compositor{Resource: NewResource(client, CompositorInterface, version, id)}
	return client.Add(c)
}

func (c *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opCompositorCreateSurface:
		id := msg.ReadUint()
		if err := CheckMessage(c, msg); err != nil {
			return err
		}
		_, err := NewSurface(c.client, c.version, id)
		return err

	case opCompositorCreateRegion:
		id := msg.ReadUint()
		if err := CheckMessage(c, msg); err != nil {
			return err
		}
		return c.client.Add(&Region{Resource: NewResource(c.client, RegionInterface, c.version, id)})

	default:
		return UnknownOp(c, msg)
	}
}

func (c *Compositor) MethodName(op uint16) string {
	switch op {
	case opCompositorCreateSurface:
		return "create_surface"
	case opCompositorCreateRegion:
		return "create_region"
	default:
		return "unknown method"
	}
}

func (c *Compositor) Delete() {}

// Region is a wl_region. Surfaces copy its contents when it is passed
// to them, so later changes don't affect them.
type Region struct {
	Resource
	region region.Region
}

func (r *Region) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opRegionDestroy:
		if err := CheckMessage(r, msg); err != nil {
			return err
		}
		r.client.Delete(r.id)
		return nil

	case opRegionAdd, opRegionSubtract:
		x := msg.ReadInt()
		y := msg.ReadInt()
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := CheckMessage(r, msg); err != nil {
			return err
		}

		rect := region.XYWH(int(x), int(y), int(w), int(h))
		if msg.Op() == opRegionAdd {
			r.region = r.region.Union(rect)
		} else {
			r.region = r.region.Subtract(rect)
		}
		return nil

	default:
		return UnknownOp(r, msg)
	}
}

func (r *Region) MethodName(op uint16) string {
	switch op {
	case opRegionDestroy:
		return "destroy"
	case opRegionAdd:
		return "add"
	case opRegionSubtract:
		return "subtract"
	default:
		return "unknown method"
	}
}

func (r *Region) Delete() {}

func (r *Region) Region() region.Region {
	return r.region
}

// regionArg resolves an optional wl_region argument. A null region
// yields nil.
func (client *Client) regionArg(id uint32) (*region.Region, error) {
	if id == 0 {
		return nil, nil
	}

	r, ok := client.Get(id).(*Region)
	if !ok {
		return nil, wire.ProtocolErrorf(client.display, DisplayErrorInvalidObject, "object %v is not a wl_region", id)
	}
	v := r.region
	return &v, nil
}
