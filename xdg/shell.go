// Package xdg implements the server side of the xdg_shell protocol:
// the xdg_wm_base global and the xdg_surface, xdg_toplevel, xdg_popup
// and xdg_positioner objects that it creates.
//
// The package only tracks protocol state. Decisions about window size,
// placement and focus are made by whoever listens to the signals of a
// Shell and calls back into it.
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

// Shell is the xdg_wm_base global of a server.
type Shell struct {
	server *wl.Server
	global *wl.Global

	// Strict selects how requests with invalid geometry are handled.
	// If true, non-positive window geometry, bad minimum and maximum
	// sizes, and popup anchor rectangles outside of the parent are
	// protocol errors. Otherwise they are logged and ignored.
	Strict bool

	// PlacePopup chooses the geometry of a popup, relative to its
	// parent's window geometry, whenever the popup is configured. If it
	// is nil, the unconstrained geometry of the popup's positioner is
	// used.
	PlacePopup func(*Popup) image.Rectangle

	bases     []*WmBase
	surfaces  map[wl.SurfaceID]*Surface
	toplevels []*Toplevel
	focus     *Toplevel

	NewSurface  signal.Signal[*Surface]
	NewToplevel signal.Signal[*Toplevel]
	NewPopup    signal.Signal[*Popup]

	// Pong is emitted when a client answers the most recent ping.
	Pong signal.Signal[*wl.Client]

	// Unresponsive is emitted by PingAll for each client that did not
	// answer the previous ping.
	Unresponsive signal.Signal[*wl.Client]
}

// NewShell registers the xdg_wm_base global with srv.
func NewShell(srv *wl.Server) *Shell {
	shell := Shell{
		server:   srv,
		Strict:   true,
		surfaces: make(map[wl.SurfaceID]*Surface),
	}
	shell.global = srv.AddGlobal(WmBaseInterface, WmBaseVersion, shell.bind)
	return &shell
}

func (shell *Shell) bind(client *wl.Client, version, id uint32) error {
	base := WmBase{
		Resource: wl.NewResource(client, WmBaseInterface, version, id),
		shell:    shell,
	}
	if err := client.Add(&base); err != nil {
		return err
	}
	shell.bases = append(shell.bases, &base)
	return nil
}

// Close withdraws the global. Objects that clients already have remain
// usable.
func (shell *Shell) Close() {
	shell.server.RemoveGlobal(shell.global)
}

func (shell *Shell) Server() *wl.Server {
	return shell.server
}

func (shell *Shell) Global() *wl.Global {
	return shell.global
}

// check applies the shell's strictness to an error caused by invalid
// geometry.
func (shell *Shell) check(err error) error {
	if (err == nil) || shell.Strict {
		return err
	}

	logger.Warn("ignoring invalid request", "err", err)
	return nil
}

func (shell *Shell) place(p *Popup) image.Rectangle {
	if shell.PlacePopup != nil {
		return shell.PlacePopup(p)
	}
	return p.positioner.UnconstrainedGeometry()
}

// Ping sends a ping to every xdg_wm_base that client has bound.
func (shell *Shell) Ping(client *wl.Client) {
	for _, base := range shell.bases {
		if base.Client() == client {
			base.ping()
		}
	}
}

// PingAll reports every client that has not answered the previous ping
// as unresponsive and then pings every client again.
func (shell *Shell) PingAll() {
	var unresponsive []*wl.Client
	for _, base := range slices.Clone(shell.bases) {
		if (base.pingSerial != 0) && !slices.Contains(unresponsive, base.Client()) {
			unresponsive = append(unresponsive, base.Client())
		}
		base.ping()
	}

	for _, client := range unresponsive {
		logger.Warn("client is unresponsive", "client", client)
		shell.Unresponsive.Emit(client)
	}
}

// XdgSurface returns the xdg_surface that has been created for s, if
// any.
func (shell *Shell) XdgSurface(s *wl.Surface) *Surface {
	if s == nil {
		return nil
	}
	return shell.surfaces[s.SurfaceID()]
}

// Toplevels returns every live toplevel in the order that they were
// created.
func (shell *Shell) Toplevels() []*Toplevel {
	return slices.Clone(shell.toplevels)
}

// Focus returns the toplevel that has keyboard focus.
func (shell *Shell) Focus() *Toplevel {
	return shell.focus
}

// SetKeyboardFocus is called when keyboard focus moves to s, which may
// be nil. The previously focused toplevel is deactivated and the
// toplevel of s, if it has one, is activated.
func (shell *Shell) SetKeyboardFocus(s *wl.Surface) {
	var next *Toplevel
	if xs := shell.XdgSurface(s); xs != nil {
		next = xs.toplevel
	}
	if next == shell.focus {
		return
	}

	if shell.focus != nil {
		shell.focus.setActivated(false)
	}
	shell.focus = next
	if next != nil {
		next.setActivated(true)
	}
}

func (shell *Shell) removeToplevel(t *Toplevel) {
	shell.toplevels = xslices.Remove(shell.toplevels, t)
	if shell.focus == t {
		shell.focus = nil
	}

	for _, child := range shell.toplevels {
		if child.parent == t {
			child.parent = t.parent
			child.ParentChanged.Emit(child.parent)
		}
	}
}

// WmBase is a client's binding of the xdg_wm_base global.
type WmBase struct {
	wl.Resource
	shell      *Shell
	surfaces   []*Surface
	pingSerial uint32
}

func (base *WmBase) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case opWmBaseDestroy:
		if err := wl.CheckMessage(base, msg); err != nil {
			return err
		}
		return base.Destroy()

	case opWmBaseCreatePositioner:
		id := msg.ReadUint()
		if err := wl.CheckMessage(base, msg); err != nil {
			return err
		}
		return base.Client().Add(&Positioner{
			Resource: wl.NewResource(base.Client(), PositionerInterface, base.Version(), id),
		})

	case opWmBaseGetXdgSurface:
		id := msg.ReadUint()
		sid := msg.ReadUint()
		if err := wl.CheckMessage(base, msg); err != nil {
			return err
		}

		s, ok := base.Client().Get(sid).(*wl.Surface)
		if !ok {
			return wire.ProtocolErrorf(base.Client().Display(), wl.DisplayErrorInvalidObject, "object %v is not a wl_surface", sid)
		}
		_, err := base.GetXdgSurface(id, s)
		return err

	case opWmBasePong:
		serial := msg.ReadUint()
		if err := wl.CheckMessage(base, msg); err != nil {
			return err
		}
		base.pong(serial)
		return nil

	default:
		return wl.UnknownOp(base, msg)
	}
}

func (base *WmBase) MethodName(op uint16) string {
	switch op {
	case opWmBaseDestroy:
		return "destroy"
	case opWmBaseCreatePositioner:
		return "create_positioner"
	case opWmBaseGetXdgSurface:
		return "get_xdg_surface"
	case opWmBasePong:
		return "pong"
	default:
		return "unknown method"
	}
}

// Destroy handles a destroy request from the client. Every xdg_surface
// created from base has to be destroyed first.
func (base *WmBase) Destroy() error {
	if len(base.surfaces) > 0 {
		return base.Errorf(WmBaseErrorDefunctSurfaces, "%v destroyed while %v xdg_surfaces still exist", base, len(base.surfaces))
	}
	base.Client().Delete(base.ID())
	return nil
}

func (base *WmBase) Delete() {
	base.shell.bases = xslices.Remove(base.shell.bases, base)
}

// GetXdgSurface creates an xdg_surface for s. The surface must not
// already have an xdg_surface or a role that xdg_shell didn't give it.
func (base *WmBase) GetXdgSurface(id uint32, s *wl.Surface) (*Surface, error) {
	role := s.Role()
	if !role.IsZero() && (role != wl.RoleToplevel) && (role != wl.RolePopup) {
		return nil, base.Errorf(WmBaseErrorRole, "%v already has role %v", s, role)
	}
	if base.shell.surfaces[s.SurfaceID()] != nil {
		return nil, base.Errorf(WmBaseErrorRole, "%v already has an xdg_surface", s)
	}

	xs := newSurface(base, id, s)
	if err := base.Client().Add(xs); err != nil {
		return nil, err
	}

	xs.attach()
	base.surfaces = append(base.surfaces, xs)
	base.shell.surfaces[s.SurfaceID()] = xs
	base.shell.NewSurface.Emit(xs)
	return xs, nil
}

func (base *WmBase) removeSurface(xs *Surface) {
	base.surfaces = xslices.Remove(base.surfaces, xs)
	if base.shell.surfaces[xs.surface.SurfaceID()] == xs {
		delete(base.shell.surfaces, xs.surface.SurfaceID())
	}
}

func (base *WmBase) ping() {
	base.pingSerial = base.shell.server.NextSerial()

	msg := base.NewEvent(evWmBasePing, "ping", base.pingSerial)
	msg.WriteUint(base.pingSerial)
	base.Post(msg)
}

func (base *WmBase) pong(serial uint32) {
	if (base.pingSerial == 0) || (serial != base.pingSerial) {
		logger.Debug("ignoring stale pong", "client", base.Client(), "serial", serial)
		return
	}

	base.pingSerial = 0
	base.shell.Pong.Emit(base.Client())
}
