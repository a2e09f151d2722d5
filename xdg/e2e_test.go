package xdg

import (
	"image"
	"testing"
	"time"

	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/shm"
	"deedles.dev/wlcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type objectID uint32

func (id objectID) ID() uint32 { return uint32(id) }

// testConn is the client end of a real socket connection to a server.
type testConn struct {
	t      *testing.T
	srv    *wl.Server
	conn   *wire.Conn
	events chan *wire.MessageBuffer
}

func dialTestServer(t *testing.T, srv *wl.Server) *testConn {
	t.Helper()

	cc, sc, err := wire.Pipe()
	require.NoError(t, err)
	srv.AddClient(sc)
	t.Cleanup(func() { cc.Close() })

	tc := testConn{
		t:      t,
		srv:    srv,
		conn:   cc,
		events: make(chan *wire.MessageBuffer, 64),
	}
	go func() {
		defer close(tc.events)
		for {
			msg, err := cc.ReadMessage()
			if err != nil {
				return
			}
			tc.events <- msg
		}
	}()

	return &tc
}

func (tc *testConn) send(id uint32, op uint16, args func(*wire.MessageBuilder)) {
	tc.t.Helper()

	msg := wire.NewMessage(objectID(id), op)
	if args != nil {
		args(msg)
	}
	require.NoError(tc.t, msg.Build(tc.conn))
}

// roundtrip sends wl_display.sync with the given callback ID and runs
// the server until the callback fires. It returns every event that
// arrived before the callback.
func (tc *testConn) roundtrip(callback uint32) []*wire.MessageBuffer {
	tc.t.Helper()

	tc.send(1, 0, func(msg *wire.MessageBuilder) { msg.WriteUint(callback) })

	var events []*wire.MessageBuffer
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(tc.t, tc.srv.Flush())

		select {
		case msg, ok := <-tc.events:
			require.True(tc.t, ok, "connection closed")
			if (msg.Sender() == callback) && (msg.Op() == 0) {
				return events
			}
			events = append(events, msg)
		case <-deadline:
			tc.t.Fatal("timed out waiting for sync")
		case <-time.After(time.Millisecond):
		}
	}
}

func eventsFrom(events []*wire.MessageBuffer, id uint32) []*wire.MessageBuffer {
	var from []*wire.MessageBuffer
	for _, ev := range events {
		if ev.Sender() == id {
			from = append(from, ev)
		}
	}
	return from
}

func TestEndToEnd(t *testing.T) {
	srv := wl.NewServer(nil)
	t.Cleanup(func() { srv.Close() })
	shell := NewShell(srv)

	const (
		registryID   = 2
		compositorID = 3
		shmID        = 4
		wmBaseID     = 5
		surfaceID    = 6
		poolID       = 7
		bufferID     = 8
		xdgSurfaceID = 10
		toplevelID   = 11
	)

	tc := dialTestServer(t, srv)

	tc.send(1, 1, func(msg *wire.MessageBuilder) { msg.WriteUint(registryID) })
	bind := func(name uint32, iface string, version, id uint32) {
		tc.send(registryID, 0, func(msg *wire.MessageBuilder) {
			msg.WriteUint(name)
			msg.WriteNewID(wire.NewID{Interface: iface, Version: version, ID: id})
		})
	}
	bind(1, wl.CompositorInterface, wl.CompositorVersion, compositorID)
	bind(2, wl.ShmInterface, wl.ShmVersion, shmID)
	bind(3, WmBaseInterface, WmBaseVersion, wmBaseID)

	events := tc.roundtrip(20)
	assert.Len(t, eventsFrom(events, registryID), 3)
	assert.Len(t, eventsFrom(events, shmID), 2)

	const width, height, stride = 100, 100, 400
	file, err := shm.Create("wlcore-test", stride*height)
	require.NoError(t, err)
	defer file.Close()

	tc.send(compositorID, 0, func(msg *wire.MessageBuilder) { msg.WriteUint(surfaceID) })
	tc.send(shmID, 0, func(msg *wire.MessageBuilder) {
		msg.WriteUint(poolID)
		msg.WriteFile(file)
		msg.WriteInt(stride * height)
	})
	tc.send(poolID, 0, func(msg *wire.MessageBuilder) {
		msg.WriteUint(bufferID)
		msg.WriteInt(0)
		msg.WriteInt(width)
		msg.WriteInt(height)
		msg.WriteInt(stride)
		msg.WriteUint(uint32(wl.ShmFormatArgb8888))
	})
	tc.send(surfaceID, 1, func(msg *wire.MessageBuilder) {
		msg.WriteUint(bufferID)
		msg.WriteInt(0)
		msg.WriteInt(0)
	})
	tc.send(surfaceID, 6, nil)
	tc.roundtrip(21)

	surfaces := srv.Surfaces()
	require.Len(t, surfaces, 1)
	s := surfaces[0]
	assert.True(t, s.HasContent())
	assert.Equal(t, image.Pt(100, 100), s.DestinationSize())

	tc.send(wmBaseID, 2, func(msg *wire.MessageBuilder) {
		msg.WriteUint(xdgSurfaceID)
		msg.WriteUint(surfaceID)
	})
	tc.send(xdgSurfaceID, 1, func(msg *wire.MessageBuilder) { msg.WriteUint(toplevelID) })
	tc.roundtrip(22)

	toplevels := shell.Toplevels()
	require.Len(t, toplevels, 1)
	tl := toplevels[0]
	assert.Equal(t, s, tl.XdgSurface().Surface())
	assert.Equal(t, image.Rect(0, 0, 100, 100), tl.XdgSurface().WindowGeometry())

	serial := tl.SendConfigure(image.Pt(100, 100), 0)
	events = tc.roundtrip(23)

	require.Len(t, eventsFrom(events, toplevelID), 1)
	require.Len(t, eventsFrom(events, xdgSurfaceID), 1)
	var order []uint32
	for _, ev := range events {
		if (ev.Sender() == toplevelID) || (ev.Sender() == xdgSurfaceID) {
			order = append(order, ev.Sender())
		}
	}
	assert.Equal(t, []uint32{toplevelID, xdgSurfaceID}, order)

	configure := eventsFrom(events, toplevelID)[0]
	assert.Equal(t, uint16(0), configure.Op())
	assert.Equal(t, int32(100), configure.ReadInt())
	assert.Equal(t, int32(100), configure.ReadInt())
	assert.Empty(t, configure.ReadArray())
	require.NoError(t, configure.Err())

	surfaceConfigure := eventsFrom(events, xdgSurfaceID)[0]
	assert.Equal(t, uint16(0), surfaceConfigure.Op())
	assert.Equal(t, serial, surfaceConfigure.ReadUint())

	tc.send(xdgSurfaceID, 4, func(msg *wire.MessageBuilder) { msg.WriteUint(serial) })
	tc.roundtrip(24)

	assert.True(t, tl.XdgSurface().IsConfigured())
	assert.Empty(t, tl.Pending())
	assert.Equal(t, serial, tl.Configured().Serial)
	assert.Equal(t, image.Pt(100, 100), tl.Configured().Size)
}

func TestEndToEndProtocolError(t *testing.T) {
	srv := wl.NewServer(nil)
	t.Cleanup(func() { srv.Close() })
	NewShell(srv)

	tc := dialTestServer(t, srv)
	tc.send(1, 1, func(msg *wire.MessageBuilder) { msg.WriteUint(2) })
	tc.send(2, 0, func(msg *wire.MessageBuilder) {
		msg.WriteUint(3)
		msg.WriteNewID(wire.NewID{Interface: WmBaseInterface, Version: WmBaseVersion, ID: 3})
	})
	tc.send(3, 1, func(msg *wire.MessageBuilder) { msg.WriteUint(4) })
	tc.send(4, 1, func(msg *wire.MessageBuilder) { msg.WriteInt(0); msg.WriteInt(10) })

	deadline := time.After(5 * time.Second)
	for {
		srv.Flush()

		select {
		case msg, ok := <-tc.events:
			require.True(t, ok, "connection closed before the error arrived")
			if (msg.Sender() != 1) || (msg.Op() != 0) {
				continue
			}

			assert.Equal(t, uint32(4), msg.ReadUint())
			assert.Equal(t, PositionerErrorInvalidInput, msg.ReadUint())
			assert.NotEmpty(t, msg.ReadString())
			assert.Empty(t, srv.Clients())
			return
		case <-deadline:
			t.Fatal("timed out waiting for error")
		case <-time.After(time.Millisecond):
		}
	}
}
