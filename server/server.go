// Package wl implements the server side of the core Wayland protocol:
// the client connection lifecycle, the registry of globals, and the
// wl_compositor, wl_surface, wl_region and wl_shm objects, along with
// the double-buffered surface state machine that shells build on.
//
// A Server is not safe for concurrent use. Connections are read on
// their own goroutines, but every request is dispatched, and every
// event is sent, from the goroutine that calls Flush.
package wl

import (
	"errors"
	"net"

	"deedles.dev/wlcore/internal/ev"
	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/internal/xslices"
	"deedles.dev/wlcore/signal"
	"deedles.dev/wlcore/wire"
	"deedles.dev/xsync"
	"golang.org/x/exp/slices"
)

type Server struct {
	stop  xsync.Stopper
	lis   *wire.Listener
	queue *ev.Queue

	clients    []*Client
	nextClient uint64
	serials    SerialGenerator

	globals    map[uint32]*Global
	nextGlobal uint32

	surfaces    map[SurfaceID]*Surface
	nextSurface SurfaceID

	ClientConnected    signal.Signal[*Client]
	ClientDisconnected signal.Signal[*Client]
	SurfaceCreated     signal.Signal[*Surface]
	SurfaceFreed       signal.Signal[SurfaceID]
}

// ListenAndServe creates a server listening on the named socket in
// $XDG_RUNTIME_DIR. If name is empty, the first free wayland-N name is
// used.
func ListenAndServe(name string) (*Server, error) {
	if name == "" {
		path, err := wire.NewSocketPath()
		if err != nil {
			return nil, err
		}
		name = path
	}

	lis, err := wire.Listen(name)
	if err != nil {
		return nil, err
	}
	return NewServer(lis), nil
}

// NewServer returns a server that accepts connections from lis. If lis
// is nil, clients can only be added with AddClient. The wl_compositor
// and wl_shm globals are registered automatically.
func NewServer(lis *wire.Listener) *Server {
	server := Server{
		lis:         lis,
		queue:       ev.NewQueue(),
		globals:     make(map[uint32]*Global),
		nextGlobal:  1,
		surfaces:    make(map[SurfaceID]*Surface),
		nextSurface: 1,
	}

	server.AddGlobal(CompositorInterface, CompositorVersion, server.bindCompositor)
	server.AddGlobal(ShmInterface, ShmVersion, server.bindShm)

	if lis != nil {
		logger.Info("listening", "socket", lis.Path())
		go server.listen()
	}

	return &server
}

func (server *Server) listen() {
	for {
		c, err := server.lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			select {
			case <-server.stop.Done():
				return
			case server.queue.Add() <- func() error { return err }:
				continue
			}
		}

		select {
		case <-server.stop.Done():
			c.Close()
			return
		case server.queue.Add() <- func() error { server.AddClient(wire.NewConn(c)); return nil }:
		}
	}
}

// Socket returns the path of the socket that the server is listening
// on, or an empty string if it isn't listening.
func (server *Server) Socket() string {
	if server.lis == nil {
		return ""
	}
	return server.lis.Path()
}

// AddClient adds a client that is connected via conn.
func (server *Server) AddClient(conn Transport) *Client {
	server.nextClient++
	client := newClient(server, server.nextClient, conn)
	server.clients = append(server.clients, client)

	logger.Debug("client connected", "client", client)
	server.ClientConnected.Emit(client)
	return client
}

func (server *Server) removeClient(client *Client) {
	server.clients = xslices.Remove(server.clients, client)

	logger.Debug("client disconnected", "client", client)
	server.ClientDisconnected.Emit(client)
}

// Clients returns the currently connected clients in the order in
// which they connected.
func (server *Server) Clients() []*Client {
	return slices.Clone(server.clients)
}

// Flush handles pending connections, dispatches every request that
// has arrived since the last flush and sends all queued events. It
// returns the errors caused by clients, which have already been
// disconnected.
func (server *Server) Flush() error {
	var errs []error
	select {
	case events := <-server.queue.Get():
		errs = append(errs, events.FlushUntil(nil)...)
	default:
	}

	for _, client := range slices.Clone(server.clients) {
		err := client.Flush()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close disconnects every client and stops listening.
func (server *Server) Close() error {
	select {
	case <-server.stop.Done():
		return nil
	default:
	}
	server.stop.Stop()

	var err error
	if server.lis != nil {
		err = server.lis.Close()
	}
	for _, client := range slices.Clone(server.clients) {
		client.Close()
	}
	server.queue.Stop()
	return err
}

// NextSerial returns a new serial for an event.
func (server *Server) NextSerial() uint32 {
	return server.serials.Next()
}

// Global is an object advertised to clients through wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32

	bind    BindFunc
	removed bool
}

// BindFunc creates the resource for a global when a client binds it.
type BindFunc func(client *Client, version, id uint32) error

// Bind creates the resource for g as if client had bound it through a
// registry.
func (g *Global) Bind(client *Client, version, id uint32) error {
	return g.bind(client, version, id)
}

// AddGlobal advertises a new global to all current and future
// registries.
func (server *Server) AddGlobal(iface string, version uint32, bind BindFunc) *Global {
	g := Global{
		Name:      server.nextGlobal,
		Interface: iface,
		Version:   version,
		bind:      bind,
	}
	server.nextGlobal++
	server.globals[g.Name] = &g

	for _, client := range server.clients {
		for _, r := range client.registries {
			r.global(&g)
		}
	}

	return &g
}

// RemoveGlobal withdraws a global. Resources that clients have already
// bound remain valid.
func (server *Server) RemoveGlobal(g *Global) {
	if g.removed {
		return
	}
	g.removed = true
	delete(server.globals, g.Name)

	for _, client := range server.clients {
		for _, r := range client.registries {
			r.globalRemove(g)
		}
	}
}

// Globals returns the currently advertised globals sorted by name.
func (server *Server) Globals() []*Global {
	names := make([]uint32, 0, len(server.globals))
	for name := range server.globals {
		names = append(names, name)
	}
	slices.Sort(names)

	globals := make([]*Global, 0, len(names))
	for _, name := range names {
		globals = append(globals, server.globals[name])
	}
	return globals
}

// Surface returns the surface with the given ID, or nil if it has been
// freed.
func (server *Server) Surface(id SurfaceID) *Surface {
	return server.surfaces[id]
}

// Surfaces returns every surface that has not yet been freed, oldest
// first.
func (server *Server) Surfaces() []*Surface {
	ids := make([]SurfaceID, 0, len(server.surfaces))
	for id := range server.surfaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	surfaces := make([]*Surface, 0, len(ids))
	for _, id := range ids {
		surfaces = append(surfaces, server.surfaces[id])
	}
	return surfaces
}

func (server *Server) addSurface(s *Surface) {
	s.sid = server.nextSurface
	server.nextSurface++
	server.surfaces[s.sid] = s
	server.SurfaceCreated.Emit(s)
}

func (server *Server) freeSurface(s *Surface) {
	delete(server.surfaces, s.sid)
	server.SurfaceFreed.Emit(s.sid)
}

// SendFrameCallbacks fires the armed frame callbacks of every surface
// with the given timestamp in milliseconds.
func (server *Server) SendFrameCallbacks(time uint32) {
	for _, s := range server.Surfaces() {
		s.SendFrameCallbacks(time)
	}
}
