package wl

import (
	"deedles.dev/wlcore/internal/xslices"
	"deedles.dev/wlcore/wire"
)

// Display is the wl_display singleton of a client connection. It
// always has ID 1.
type Display struct {
	Resource
}

func newDisplay(client *Client) *Display {
	return &Display{
		Resource: NewResource(client, DisplayInterface, 1, 1),
	}
}

func (d *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opDisplaySync:
		id := msg.ReadUint()
		if err := CheckMessage(d, msg); err != nil {
			return err
		}
		return d.sync(id)

	case opDisplayGetRegistry:
		id := msg.ReadUint()
		if err := CheckMessage(d, msg); err != nil {
			return err
		}
		return d.getRegistry(id)

	default:
		return UnknownOp(d, msg)
	}
}

func (d *Display) MethodName(op uint16) string {
	switch op {
	case opDisplaySync:
		return "sync"
	case opDisplayGetRegistry:
		return "get_registry"
	default:
		return "unknown method"
	}
}

func (d *Display) Delete() {}

// Every request that was sent before the sync has been handled by the
// time it is dispatched, so the callback fires immediately.
func (d *Display) sync(id uint32) error {
	cb := newCallback(d.client, id)
	if err := d.client.Add(cb); err != nil {
		return err
	}
	cb.Done(d.client.server.NextSerial())
	return nil
}

func (d *Display) getRegistry(id uint32) error {
	r := &Registry{Resource: NewResource(d.client, RegistryInterface, 1, id)}
	if err := d.client.Add(r); err != nil {
		return err
	}
	d.client.registries = append(d.client.registries, r)

	for _, g := range d.client.server.Globals() {
		r.global(g)
	}
	return nil
}

// Registry is a wl_registry. It advertises the server's globals to
// the client and creates resources for them when they are bound.
type Registry struct {
	Resource
}

func (r *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opRegistryBind:
		name := msg.ReadUint()
		id := msg.ReadNewID()
		if err := CheckMessage(r, msg); err != nil {
			return err
		}
		return r.bind(name, id)

	default:
		return UnknownOp(r, msg)
	}
}

func (r *Registry) MethodName(op uint16) string {
	switch op {
	case opRegistryBind:
		return "bind"
	default:
		return "unknown method"
	}
}

func (r *Registry) Delete() {
	r.client.registries = xslices.Remove(r.client.registries, r)
}

func (r *Registry) global(g *Global) {
	msg := r.NewEvent(evRegistryGlobal, "global", g.Name, g.Interface, g.Version)
	msg.WriteUint(g.Name)
	msg.WriteString(g.Interface)
	msg.WriteUint(g.Version)
	r.Post(msg)
}

func (r *Registry) globalRemove(g *Global) {
	msg := r.NewEvent(evRegistryGlobalRemove, "global_remove", g.Name)
	msg.WriteUint(g.Name)
	r.Post(msg)
}

func (r *Registry) bind(name uint32, id wire.NewID) error {
	g := r.client.server.globals[name]
	if g == nil {
		return r.Errorf(DisplayErrorInvalidObject, "invalid global %v (%v)", id.Interface, name)
	}
	if g.Interface != id.Interface {
		return r.Errorf(DisplayErrorInvalidObject, "invalid interface for global %v: have %v, wanted %v", name, id.Interface, g.Interface)
	}
	if (id.Version == 0) || (id.Version > g.Version) {
		return r.Errorf(DisplayErrorInvalidObject, "invalid version for global %v (%v): have %v, wanted 1 to %v", g.Interface, name, id.Version, g.Version)
	}

	return g.bind(r.client, id.Version, id.ID)
}

// Callback is a wl_callback. It is destroyed as soon as it fires.
type Callback struct {
	Resource
	done bool
}

func newCallback(client *Client, id uint32) *Callback {
	return &Callback{Resource: NewResource(client, CallbackInterface, 1, id)}
}

func (cb *Callback) Dispatch(msg *wire.MessageBuffer) error {
	return UnknownOp(cb, msg)
}

func (cb *Callback) MethodName(op uint16) string {
	return "unknown method"
}

func (cb *Callback) Delete() {
	cb.done = true
}

// Done sends the done event and destroys the callback.
func (cb *Callback) Done(data uint32) {
	if cb.done {
		return
	}

	msg := cb.NewEvent(evCallbackDone, "done", data)
	msg.WriteUint(data)
	cb.Post(msg)
	cb.client.Delete(cb.id)
}
