package wl

import (
	"io"
	"testing"
	"time"

	"deedles.dev/wlcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdvertisesGlobals(t *testing.T) {
	srv, c, tr := newTestClient(t)

	require.NoError(t, c.Display().getRegistry(2))
	require.NoError(t, c.Flush())

	events := tr.Take()
	require.Len(t, events, 2)
	assert.Equal(t, "wl_registry@2", events[0].Object)
	assert.Equal(t, []any{uint32(1), CompositorInterface, uint32(CompositorVersion)}, events[0].Args)
	assert.Equal(t, []any{uint32(2), ShmInterface, uint32(ShmVersion)}, events[1].Args)

	g := srv.AddGlobal("test_global", 3, func(*Client, uint32, uint32) error { return nil })
	srv.RemoveGlobal(g)
	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"wl_registry@2.global", "wl_registry@2.global_remove"}, tr.Methods())
	assert.Len(t, srv.Globals(), 2)
}

func TestRegistryBind(t *testing.T) {
	srv, c, tr := newTestClient(t)
	require.NoError(t, c.Display().getRegistry(2))
	r := c.Get(2).(*Registry)

	var bound []uint32
	g := srv.AddGlobal("test_global", 3, func(client *Client, version, id uint32) error {
		assert.Equal(t, c, client)
		bound = append(bound, version, id)
		return nil
	})

	require.NoError(t, r.bind(g.Name, wire.NewID{Interface: "test_global", Version: 2, ID: 7}))
	assert.Equal(t, []uint32{2, 7}, bound)

	var perr *wire.ProtocolError
	require.ErrorAs(t, r.bind(g.Name, wire.NewID{Interface: "test_global", Version: 4, ID: 8}), &perr)
	assert.Equal(t, DisplayErrorInvalidObject, perr.Code)
	require.Error(t, r.bind(g.Name, wire.NewID{Interface: "other", Version: 1, ID: 8}))
	require.Error(t, r.bind(99, wire.NewID{Interface: "test_global", Version: 1, ID: 8}))

	require.NoError(t, r.bind(2, wire.NewID{Interface: ShmInterface, Version: 1, ID: 9}))
	require.NoError(t, c.Flush())
	assert.Len(t, tr.Find("format"), 2)
}

func TestSyncFiresImmediately(t *testing.T) {
	_, c, tr := newTestClient(t)

	require.NoError(t, c.Display().sync(5))
	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"wl_callback@5.done", "wl_display@1.delete_id"}, tr.Methods())
	assert.Nil(t, c.Get(5))
}

func TestAddRejectsDuplicateIDs(t *testing.T) {
	_, c, _ := newTestClient(t)

	newTestSurface(t, c, 3)
	_, err := NewSurface(c, CompositorVersion, 3)

	var perr *wire.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, DisplayErrorInvalidObject, perr.Code)

	_, err = NewSurface(c, CompositorVersion, wire.ServerIDStart+1)
	require.Error(t, err)

	b := newTestBuffer(t, c, 0, 1, 1)
	assert.GreaterOrEqual(t, b.ID(), uint32(wire.ServerIDStart))
}

func TestProtocolErrorDisconnects(t *testing.T) {
	srv, c, tr := newTestClient(t)
	s := newTestSurface(t, c, 3)

	var disconnected []*Client
	srv.ClientDisconnected.Connect(func(c *Client) { disconnected = append(disconnected, c) })
	var destroyed int
	s.Destroyed.Connect(func(*Surface) { destroyed++ })

	c.PostError(s.Errorf(SurfaceErrorInvalidScale, "bad scale"))
	require.NoError(t, c.Flush())

	events := tr.Take()
	require.Len(t, events, 1)
	assert.Equal(t, "wl_display@1", events[0].Object)
	assert.Equal(t, "error", events[0].Method)
	assert.Equal(t, []any{uint32(3), SurfaceErrorInvalidScale, "bad scale"}, events[0].Args)

	assert.True(t, c.IsDestroyed())
	assert.True(t, tr.Closed())
	assert.Equal(t, []*Client{c}, disconnected)
	assert.Empty(t, srv.Clients())
	assert.Equal(t, 1, destroyed)
	assert.Empty(t, srv.Surfaces())

	c.Enqueue(s.NewEvent(0, "enter"))
	require.NoError(t, c.Flush())
	assert.Empty(t, tr.Take())
}

func TestHandleErrorClassifiesErrors(t *testing.T) {
	_, c, tr := newTestClient(t)

	err := c.handleError(assert.AnError)
	var perr *wire.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, DisplayErrorImplementation, perr.Code)
	assert.Equal(t, uint32(1), perr.ObjectID)

	require.NoError(t, c.flushEvents())
	assert.Equal(t, []string{"wl_display@1.error"}, tr.Methods())
}

func TestSerialsIncrease(t *testing.T) {
	var g SerialGenerator
	assert.Equal(t, uint32(1), g.Next())
	assert.Equal(t, uint32(2), g.Next())
	assert.Equal(t, uint32(2), g.Last())
}

type rawSender uint32

func (s rawSender) ID() uint32 { return uint32(s) }

func TestProtocolErrorOverSocket(t *testing.T) {
	srv := NewServer(nil)
	t.Cleanup(func() { srv.Close() })

	sc, cc, err := wire.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	srv.AddClient(sc)

	require.NoError(t, wire.NewMessage(rawSender(99), 0).Build(cc))

	deadline := time.Now().Add(5 * time.Second)
	for len(srv.Clients()) > 0 {
		require.True(t, time.Now().Before(deadline), "client was not disconnected")
		srv.Flush()
		time.Sleep(time.Millisecond)
	}

	msg, err := cc.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), msg.Sender())
	assert.Equal(t, uint16(evDisplayError), msg.Op())
	assert.Equal(t, uint32(1), msg.ReadUint())
	assert.Equal(t, DisplayErrorInvalidObject, msg.ReadUint())

	_, err = cc.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)

	// The reader goroutine of the closed connection has to exit
	// cleanly for the server to keep serving.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, srv.Flush())

	sc2, cc2, err := wire.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { cc2.Close() })
	srv.AddClient(sc2)
	require.NoError(t, srv.Close())
	require.NoError(t, srv.Flush())
	assert.Empty(t, srv.Clients())
}
