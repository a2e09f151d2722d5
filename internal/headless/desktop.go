package headless

import (
	"image"

	"deedles.dev/wlcore/internal/logger"
	"deedles.dev/wlcore/internal/xslices"
	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/xdg"
	"golang.org/x/exp/slices"
)

const cascadeStep = 32

// Desktop is a simple floating window manager. New windows are
// cascaded on the first output and given keyboard focus, maximize and
// fullscreen requests are granted, and popups are slid back onto the
// output when they are allowed to be.
type Desktop struct {
	server  *wl.Server
	shell   *xdg.Shell
	outputs []*Output

	windows []*Window
	popups  []*popupView
	cascade int

	unwatch []func()
}

// Window is a toplevel shown on the desktop.
type Window struct {
	desktop  *Desktop
	toplevel *xdg.Toplevel
	view     *wl.View
	output   *Output

	// pos is the position of the window geometry on the output.
	pos image.Point

	restorePos  image.Point
	restoreSize image.Point

	unwatch []func()
}

type popupView struct {
	popup   *xdg.Popup
	view    *wl.View
	unwatch func()
}

// NewDesktop manages the toplevels and popups of shell. At least one
// output is required.
func NewDesktop(shell *xdg.Shell, outputs []*Output) *Desktop {
	if len(outputs) == 0 {
		panic("headless: desktop without outputs")
	}

	d := Desktop{
		server:  shell.Server(),
		shell:   shell,
		outputs: outputs,
	}
	shell.PlacePopup = d.placePopup
	d.unwatch = []func(){
		shell.NewToplevel.Connect(d.addToplevel),
		shell.NewPopup.Connect(d.addPopup),
		shell.Unresponsive.Connect(func(c *wl.Client) {
			logger.Warn("closing windows of unresponsive client", "client", c)
			for _, w := range d.windows {
				if w.toplevel.Client() == c {
					w.toplevel.SendClose()
				}
			}
		}),
	}
	return &d
}

// Close stops managing the shell and releases every view.
func (d *Desktop) Close() {
	for _, f := range d.unwatch {
		f()
	}
	for _, w := range slices.Clone(d.windows) {
		w.remove()
	}
	for _, pv := range slices.Clone(d.popups) {
		d.removePopup(pv)
	}
	d.shell.PlacePopup = nil
}

func (d *Desktop) Outputs() []*Output {
	return slices.Clone(d.outputs)
}

// Windows returns the windows from the bottom of the stack to the top.
func (d *Desktop) Windows() []*Window {
	return slices.Clone(d.windows)
}

// Window returns the window of t, or nil.
func (d *Desktop) Window(t *xdg.Toplevel) *Window {
	i := slices.IndexFunc(d.windows, func(w *Window) bool { return w.toplevel == t })
	if i < 0 {
		return nil
	}
	return d.windows[i]
}

// Focus raises w and gives it keyboard focus. A nil w removes focus
// from every window.
func (d *Desktop) Focus(w *Window) {
	if w == nil {
		d.shell.SetKeyboardFocus(nil)
		return
	}

	d.windows = append(xslices.Remove(d.windows, w), w)
	d.shell.SetKeyboardFocus(w.toplevel.XdgSurface().Surface())
}

// Advance lets every view pick up the most recently committed buffer
// of its surface.
func (d *Desktop) Advance() {
	for _, w := range d.windows {
		w.view.Advance()
	}
	for _, pv := range d.popups {
		pv.view.Advance()
	}
}

func (d *Desktop) addToplevel(t *xdg.Toplevel) {
	o := d.outputs[0]
	avail := o.Available()

	w := Window{
		desktop:  d,
		toplevel: t,
		view:     wl.NewView(d.server, o.Output),
		output:   o,
		pos:      avail.Min.Add(image.Pt(d.cascade, d.cascade)),
	}
	d.cascade += cascadeStep
	if d.cascade >= min(avail.Dx(), avail.Dy())/2 {
		d.cascade = 0
	}

	w.view.Attach(t.XdgSurface().Surface())
	w.unwatch = []func(){
		t.Destroyed.Connect(func(*xdg.Toplevel) { w.remove() }),
		t.SetMaximized.Connect(func(*xdg.Toplevel) { w.Maximize() }),
		t.UnsetMaximized.Connect(func(*xdg.Toplevel) { w.Restore() }),
		t.SetFullscreen.Connect(func(*xdg.Toplevel) { w.Fullscreen() }),
		t.UnsetFullscreen.Connect(func(*xdg.Toplevel) { w.Restore() }),
		t.SetMinimized.Connect(func(*xdg.Toplevel) {
			logger.Debug("ignoring minimize request", "toplevel", t)
		}),
	}

	d.windows = append(d.windows, &w)
	t.SendConfigure(image.Point{}, 0)
	d.Focus(&w)
}

func (d *Desktop) addPopup(p *xdg.Popup) {
	pv := popupView{
		popup: p,
		view:  wl.NewView(d.server, d.outputs[0].Output),
	}
	pv.view.Attach(p.XdgSurface().Surface())
	pv.unwatch = p.Destroyed.Connect(func(*xdg.Popup) { d.removePopup(&pv) })
	d.popups = append(d.popups, &pv)
}

func (d *Desktop) removePopup(pv *popupView) {
	pv.unwatch()
	pv.view.Release()
	d.popups = xslices.Remove(d.popups, pv)
}

// origin returns the position of the top-left corner of the surface of
// xs on the output, or false if xs isn't shown.
func (d *Desktop) origin(xs *xdg.Surface) (*Output, image.Point, bool) {
	if xs == nil {
		return nil, image.Point{}, false
	}

	if t := xs.Toplevel(); t != nil {
		w := d.Window(t)
		if w == nil {
			return nil, image.Point{}, false
		}
		return w.output, w.pos.Sub(xs.WindowGeometry().Min), true
	}

	if p := xs.Popup(); p != nil {
		parent := p.Parent()
		o, pos, ok := d.origin(parent)
		if !ok {
			return nil, image.Point{}, false
		}
		pos = pos.Add(parent.WindowGeometry().Min).Add(p.Geometry().Min).Sub(xs.WindowGeometry().Min)
		return o, pos, true
	}

	return nil, image.Point{}, false
}

// placePopup slides a popup back onto its output along the axes that
// its positioner allows.
func (d *Desktop) placePopup(p *xdg.Popup) image.Rectangle {
	data := p.Positioner()
	geom := data.UnconstrainedGeometry()

	parent := p.Parent()
	o, pos, ok := d.origin(parent)
	if !ok {
		return geom
	}

	offset := pos.Add(parent.WindowGeometry().Min)
	onOutput := geom.Add(offset)
	bounds := o.Bounds()

	if data.ConstraintAdjustment.Has(xdg.ConstraintAdjustmentSlideX) {
		onOutput = onOutput.Add(image.Pt(slide(onOutput.Min.X, onOutput.Max.X, bounds.Min.X, bounds.Max.X), 0))
	}
	if data.ConstraintAdjustment.Has(xdg.ConstraintAdjustmentSlideY) {
		onOutput = onOutput.Add(image.Pt(0, slide(onOutput.Min.Y, onOutput.Max.Y, bounds.Min.Y, bounds.Max.Y)))
	}

	return onOutput.Sub(offset)
}

// slide returns how far [start, end) has to move to fit in [lo, hi).
// If it doesn't fit at all, it is aligned with lo.
func slide(start, end, lo, hi int) int {
	switch {
	case start < lo:
		return lo - start
	case end > hi:
		return max(lo-start, hi-end)
	default:
		return 0
	}
}

// Toplevel returns the toplevel shown by w.
func (w *Window) Toplevel() *xdg.Toplevel {
	return w.toplevel
}

func (w *Window) Output() *Output {
	return w.output
}

// Position returns the position of the window geometry on the output.
func (w *Window) Position() image.Point {
	return w.pos
}

// Move moves the window geometry to pos.
func (w *Window) Move(pos image.Point) {
	w.pos = pos
}

func (w *Window) saveRestore() {
	states := w.toplevel.LastSent().States
	if states.Has(xdg.StateMaximized) || states.Has(xdg.StateFullscreen) {
		return
	}
	w.restorePos = w.pos
	w.restoreSize = w.toplevel.XdgSurface().WindowGeometry().Size()
}

// Maximize fills the available area of the window's output.
func (w *Window) Maximize() {
	w.saveRestore()
	w.pos = w.output.Available().Min
	w.toplevel.SendMaximizedOn(w.output.Output)
}

// Fullscreen covers the window's entire output.
func (w *Window) Fullscreen() {
	w.saveRestore()
	w.pos = image.Point{}
	w.toplevel.SendFullscreenOn(w.output.Output)
}

// Restore returns a maximized or fullscreen window to the position
// and size that it had before.
func (w *Window) Restore() {
	states := w.toplevel.LastSent().States
	if !states.Has(xdg.StateMaximized) && !states.Has(xdg.StateFullscreen) {
		return
	}

	w.pos = w.restorePos
	w.toplevel.SendUnmaximized(w.restoreSize)
}

// Resize asks the client to resize the window by delta, as if the given
// edges were being dragged. Dragging the top or left edge keeps the
// opposite edge in place.
func (w *Window) Resize(delta image.Point, edges xdg.Edges) {
	size := w.toplevel.XdgSurface().WindowGeometry().Size()
	next := w.toplevel.SizeForResize(size, delta, edges)
	if edges.Has(xdg.EdgeLeft) {
		w.pos.X -= next.X - size.X
	}
	if edges.Has(xdg.EdgeTop) {
		w.pos.Y -= next.Y - size.Y
	}
	w.toplevel.SendConfigure(next, w.toplevel.LastSent().States)
}

func (w *Window) remove() {
	d := w.desktop
	if !slices.Contains(d.windows, w) {
		return
	}

	for _, f := range w.unwatch {
		f()
	}
	w.view.Release()

	focused := d.shell.Focus() == nil
	d.windows = xslices.Remove(d.windows, w)
	if focused && (len(d.windows) > 0) {
		d.Focus(d.windows[len(d.windows)-1])
	}
}
