package headless

import (
	"image"
	"image/color"
	"testing"

	"deedles.dev/wlcore/internal/config"
	"deedles.dev/wlcore/internal/wltest"
	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

const testBaseID = 2

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

type testEnv struct {
	t       *testing.T
	desktop *Desktop
	shell   *xdg.Shell
	client  *wl.Client
	tr      *wltest.Transport
	output  *Output
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := wl.NewServer(nil)
	t.Cleanup(func() { srv.Close() })

	shell := xdg.NewShell(srv)
	output := NewOutput(config.OutputConfig{
		Name:        "TEST-1",
		Width:       200,
		Height:      100,
		Scale:       1,
		ReservedTop: 30,
	})
	desktop := NewDesktop(shell, []*Output{output})

	tr := wltest.NewTransport()
	c := srv.AddClient(tr)
	require.NoError(t, shell.Global().Bind(c, xdg.WmBaseVersion, testBaseID))

	return &testEnv{
		t:       t,
		desktop: desktop,
		shell:   shell,
		client:  c,
		tr:      tr,
		output:  output,
	}
}

func (env *testEnv) xdgSurface(id uint32) *xdg.Surface {
	env.t.Helper()

	s, err := wl.NewSurface(env.client, wl.CompositorVersion, id)
	require.NoError(env.t, err)
	xs, err := env.client.Get(testBaseID).(*xdg.WmBase).GetXdgSurface(id+1, s)
	require.NoError(env.t, err)
	return xs
}

func (env *testEnv) toplevel(id uint32) *xdg.Toplevel {
	env.t.Helper()

	tl, err := env.xdgSurface(id).GetToplevel(id + 2)
	require.NoError(env.t, err)
	return tl
}

// show acknowledges the last configure of xs and commits a buffer of
// the given size and color.
func (env *testEnv) show(xs *xdg.Surface, serial, id uint32, size image.Point, c color.Color) {
	env.t.Helper()

	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	b, err := wl.NewBuffer(env.client, id, &wl.ImageStorage{Img: img})
	require.NoError(env.t, err)

	require.NoError(env.t, xs.AckConfigure(serial))
	require.NoError(env.t, xs.Surface().Attach(b, 0, 0))
	require.NoError(env.t, xs.Surface().Commit())
}

func TestNewOutput(t *testing.T) {
	o := NewOutput(config.OutputConfig{
		Name:        "HIDPI",
		X:           100,
		Width:       400,
		Height:      200,
		Scale:       2,
		ReservedTop: 20,
	})
	assert.Equal(t, image.Rect(100, 0, 500, 200), o.Geometry)
	assert.Equal(t, image.Rect(100, 20, 500, 200), o.AvailableGeometry)
	assert.Equal(t, image.Rect(0, 0, 200, 100), o.Bounds())
	assert.Equal(t, image.Rect(0, 10, 200, 100), o.Available())
	assert.Equal(t, image.Pt(200, 90), o.LogicalSize())
}

func TestNewToplevel(t *testing.T) {
	env := newTestEnv(t)
	t1 := env.toplevel(10)

	w1 := env.desktop.Window(t1)
	require.NotNil(t, w1)
	assert.Equal(t, image.Pt(0, 30), w1.Position())
	assert.Equal(t, env.output, w1.Output())
	assert.Equal(t, t1, env.shell.Focus())
	assert.Equal(t, []*wl.View{w1.view}, t1.XdgSurface().Surface().Views())

	pending := t1.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, image.Point{}, pending[0].Size)
	assert.Equal(t, xdg.NewStates(), pending[0].States)
	assert.Equal(t, xdg.NewStates(xdg.StateActivated), pending[1].States)

	t2 := env.toplevel(20)
	w2 := env.desktop.Window(t2)
	assert.Equal(t, image.Pt(32, 62), w2.Position())
	assert.Equal(t, []*Window{w1, w2}, env.desktop.Windows())
	assert.Equal(t, t2, env.shell.Focus())
	assert.False(t, t1.LastSent().States.Has(xdg.StateActivated))

	env.desktop.Focus(w1)
	assert.Equal(t, []*Window{w2, w1}, env.desktop.Windows())
	assert.Equal(t, t1, env.shell.Focus())

	env.client.Delete(t1.ID())
	assert.Nil(t, env.desktop.Window(t1))
	assert.Empty(t, t1.XdgSurface().Surface().Views())
	assert.Equal(t, t2, env.shell.Focus(), "focus moves to the next window")
}

func TestMaximizeAndRestore(t *testing.T) {
	env := newTestEnv(t)
	tl := env.toplevel(10)
	w := env.desktop.Window(tl)
	env.show(tl.XdgSurface(), tl.LastSent().Serial, 13, image.Pt(40, 20), red)
	w.Move(image.Pt(50, 50))

	tl.SetMaximized.Emit(tl)
	assert.Equal(t, image.Pt(0, 30), w.Position())
	assert.Equal(t, image.Pt(200, 70), tl.LastSent().Size)
	assert.Equal(t, xdg.NewStates(xdg.StateMaximized, xdg.StateActivated), tl.LastSent().States)

	tl.SetFullscreen.Emit(tl)
	assert.Equal(t, image.Point{}, w.Position())
	assert.Equal(t, image.Pt(200, 100), tl.LastSent().Size)
	assert.Equal(t, xdg.NewStates(xdg.StateFullscreen, xdg.StateActivated), tl.LastSent().States)

	tl.UnsetFullscreen.Emit(tl)
	assert.Equal(t, image.Pt(50, 50), w.Position())
	assert.Equal(t, image.Pt(40, 20), tl.LastSent().Size)
	assert.Equal(t, xdg.NewStates(xdg.StateActivated), tl.LastSent().States)

	serial := tl.LastSent().Serial
	tl.UnsetMaximized.Emit(tl)
	assert.Equal(t, serial, tl.LastSent().Serial, "a restored window is left alone")
}

func TestResize(t *testing.T) {
	env := newTestEnv(t)
	tl := env.toplevel(10)
	w := env.desktop.Window(tl)
	env.show(tl.XdgSurface(), tl.LastSent().Serial, 13, image.Pt(40, 20), red)
	w.Move(image.Pt(50, 50))

	w.Resize(image.Pt(-10, 5), xdg.EdgeLeft|xdg.EdgeBottom)
	assert.Equal(t, image.Pt(50, 25), tl.LastSent().Size)
	assert.Equal(t, image.Pt(40, 50), w.Position())
}

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	t1 := env.toplevel(10)
	env.show(t1.XdgSurface(), t1.LastSent().Serial, 13, image.Pt(40, 20), red)
	t2 := env.toplevel(20)
	env.show(t2.XdgSurface(), t2.LastSent().Serial, 23, image.Pt(40, 20), blue)

	fb := env.desktop.Snapshot(env.output)
	assert.Equal(t, image.Rect(0, 0, 200, 100), fb.Bounds())
	assert.Equal(t, color.RGBA{A: 0xff}, fb.RGBAAt(5, 35), "views haven't advanced yet")

	env.desktop.Window(t2).Move(image.Pt(20, 40))
	env.desktop.Advance()
	fb = env.desktop.Snapshot(env.output)
	assert.Equal(t, red, fb.RGBAAt(5, 35))
	assert.Equal(t, blue, fb.RGBAAt(35, 45), "the focused window is on top")
	assert.Equal(t, blue, fb.RGBAAt(50, 55))
	assert.Equal(t, color.RGBA{A: 0xff}, fb.RGBAAt(150, 90))

	env.desktop.Focus(env.desktop.Window(t1))
	fb = env.desktop.Snapshot(env.output)
	assert.Equal(t, red, fb.RGBAAt(35, 45))
	assert.Equal(t, blue, fb.RGBAAt(50, 55))
}

func TestSnapshotScale(t *testing.T) {
	env := newTestEnv(t)
	env.output.Scale = 2
	env.output.Geometry = image.Rect(0, 0, 400, 200)
	env.output.AvailableGeometry = env.output.Geometry

	tl := env.toplevel(10)
	env.show(tl.XdgSurface(), tl.LastSent().Serial, 13, image.Pt(40, 20), red)
	env.desktop.Advance()

	fb := env.desktop.Snapshot(env.output)
	assert.Equal(t, image.Rect(0, 0, 400, 200), fb.Bounds())
	assert.Equal(t, red, fb.RGBAAt(75, 35))
	assert.Equal(t, color.RGBA{A: 0xff}, fb.RGBAAt(85, 35))
}

func TestPopupPlacement(t *testing.T) {
	env := newTestEnv(t)
	tl := env.toplevel(10)
	w := env.desktop.Window(tl)
	env.show(tl.XdgSurface(), tl.LastSent().Serial, 13, image.Pt(40, 20), red)
	w.Move(image.Pt(180, 30))

	positioner := xdg.PositionerData{
		Size:       image.Pt(50, 10),
		AnchorRect: image.Rect(0, 0, 40, 20),
		Anchor:     xdg.EdgeBottom | xdg.EdgeRight,
		Gravity:    xdg.EdgeBottom | xdg.EdgeRight,
	}

	xs := env.xdgSurface(30)
	p, err := xs.GetPopup(32, tl.XdgSurface(), positioner)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(40, 20, 90, 30), p.LastSent().Geometry, "sliding is not allowed")

	positioner.ConstraintAdjustment = xdg.ConstraintAdjustmentSlideX | xdg.ConstraintAdjustmentSlideY
	require.NoError(t, p.Reposition(positioner, 1))
	assert.Equal(t, image.Rect(-30, 20, 20, 30), p.LastSent().Geometry)

	env.show(xs, p.LastSent().Serial, 33, image.Pt(50, 10), blue)
	env.desktop.Advance()
	fb := env.desktop.Snapshot(env.output)
	assert.Equal(t, blue, fb.RGBAAt(155, 55))
	assert.Equal(t, red, fb.RGBAAt(185, 35))

	require.NoError(t, p.Destroy())
	assert.Empty(t, xs.Surface().Views())
}

func TestUnresponsive(t *testing.T) {
	env := newTestEnv(t)
	env.toplevel(10)
	env.toplevel(20)
	require.NoError(t, env.client.Flush())
	env.tr.Take()

	env.shell.PingAll()
	require.NoError(t, env.client.Flush())
	assert.Empty(t, env.tr.Find("close"))

	env.shell.PingAll()
	require.NoError(t, env.client.Flush())
	assert.Len(t, env.tr.Find("close"), 2)
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	tl := env.toplevel(10)
	xs := env.xdgSurface(20)
	_, err := xs.GetPopup(22, nil, xdg.PositionerData{
		Size:       image.Pt(10, 10),
		AnchorRect: image.Rect(0, 0, 1, 1),
	})
	require.NoError(t, err)

	env.desktop.Close()
	assert.Empty(t, env.desktop.Windows())
	assert.Empty(t, tl.XdgSurface().Surface().Views())
	assert.Empty(t, xs.Surface().Views())
	assert.Nil(t, env.shell.PlacePopup)

	env.toplevel(30)
	assert.Empty(t, env.desktop.Windows())
}
