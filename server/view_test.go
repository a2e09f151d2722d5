package wl

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReleasedWhenReplaced(t *testing.T) {
	_, c, tr := newTestClient(t)
	s := newTestSurface(t, c, 3)
	b1 := newTestBuffer(t, c, 4, 10, 10)
	b2 := newTestBuffer(t, c, 5, 10, 10)

	require.NoError(t, s.Attach(b1, 0, 0))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Attach(b2, 0, 0))
	require.NoError(t, s.Commit())

	assert.Equal(t, 0, b1.Locks())
	assert.Equal(t, 1, b2.Locks())

	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"wl_buffer@4.release"}, tr.Methods())
}

func TestDestroyedBufferIsNotReleased(t *testing.T) {
	_, c, tr := newTestClient(t)
	s := newTestSurface(t, c, 3)
	b1 := newTestBuffer(t, c, 4, 10, 10)
	b2 := newTestBuffer(t, c, 5, 10, 10)

	require.NoError(t, s.Attach(b1, 0, 0))
	require.NoError(t, s.Commit())
	c.Delete(4)
	assert.Equal(t, b1, s.Buffer(), "content survives the destruction of the buffer object")

	require.NoError(t, s.Attach(b2, 0, 0))
	require.NoError(t, s.Commit())

	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"wl_display@1.delete_id"}, tr.Methods())
}

func TestViewAdvance(t *testing.T) {
	srv, c, tr := newTestClient(t)
	s := newTestSurface(t, c, 3)
	b1 := newTestBuffer(t, c, 4, 10, 10)
	b2 := newTestBuffer(t, c, 5, 10, 10)

	require.NoError(t, s.Attach(b1, 0, 0))
	require.NoError(t, s.Commit())

	v := NewView(srv, nil)
	v.Attach(s)
	assert.Equal(t, s, v.Surface())
	assert.Equal(t, []*View{v}, s.Views())

	assert.True(t, v.Advance())
	assert.False(t, v.Advance())
	assert.Equal(t, b1, v.CurrentBuffer())
	assert.Equal(t, 2, b1.Locks())

	v.SetBufferLocked(true)
	s.Damage(image.Rect(0, 0, 1, 1))
	require.NoError(t, s.Attach(b2, 0, 0))
	require.NoError(t, s.Commit())

	assert.False(t, v.Advance())
	assert.Equal(t, b1, v.CurrentBuffer())
	assert.Equal(t, 1, b1.Locks())
	require.NoError(t, c.Flush())
	assert.Empty(t, tr.Take())

	v.SetBufferLocked(false)
	assert.True(t, v.Advance())
	assert.Equal(t, b2, v.CurrentBuffer())
	assert.Equal(t, image.Rect(0, 0, 1, 1), v.CurrentDamage().Bounds())

	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"wl_buffer@4.release"}, tr.Methods())
}

func TestViewKeepsSurfaceAlive(t *testing.T) {
	srv, c, _ := newTestClient(t)
	s := newTestSurface(t, c, 3)
	id := s.SurfaceID()

	v := NewView(srv, nil)
	v.Attach(s)

	var changes []*Surface
	v.SurfaceChanged.Connect(func(s *Surface) { changes = append(changes, s) })

	v.Detach()
	assert.Nil(t, v.Surface())
	assert.Empty(t, s.Views())
	assert.Equal(t, s, srv.Surface(id))
	assert.Equal(t, []*Surface{nil}, changes)

	v.Attach(s)
	v.Attach(s)
	assert.Len(t, s.Views(), 1)
}

func TestViewDetachedWhenSurfaceDestroyed(t *testing.T) {
	srv, c, _ := newTestClient(t)
	s := newTestSurface(t, c, 3)
	b := newTestBuffer(t, c, 4, 10, 10)
	id := s.SurfaceID()

	require.NoError(t, s.Attach(b, 0, 0))
	require.NoError(t, s.Commit())

	v := NewView(srv, nil)
	v.Attach(s)
	v.Advance()

	var destroyed int
	v.SurfaceDestroyed.Connect(func(got *View) {
		assert.Equal(t, v, got)
		assert.Equal(t, s, got.Surface(), "the surface is still reachable during the notification")
		destroyed++
	})

	c.Delete(3)
	assert.Equal(t, 1, destroyed)
	assert.Nil(t, v.Surface())
	assert.Nil(t, srv.Surface(id))
	assert.Equal(t, b, v.CurrentBuffer(), "the last frame is kept")
	assert.Equal(t, 1, b.Locks())

	v.Release()
	assert.Equal(t, 0, b.Locks())
	assert.Panics(t, func() { v.Attach(s) })
}

func TestViewDiscardFrontBuffer(t *testing.T) {
	srv, c, _ := newTestClient(t)
	s := newTestSurface(t, c, 3)
	b := newTestBuffer(t, c, 4, 10, 10)

	require.NoError(t, s.Attach(b, 0, 0))
	require.NoError(t, s.Commit())

	v := NewView(srv, nil)
	v.SetDiscardFrontBuffer(true)
	v.Attach(s)
	v.Advance()
	assert.Equal(t, b, v.CurrentBuffer())

	require.NoError(t, s.Attach(nil, 0, 0))
	require.NoError(t, s.Commit())
	assert.Nil(t, v.CurrentBuffer())
}
