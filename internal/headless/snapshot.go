package headless

import (
	"image"

	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/xdg"
)

// Snapshot renders what o currently shows. Windows are drawn from the
// bottom of the stack up and popups are drawn above every window. Only
// buffers that the views have picked up with Advance are used.
func (d *Desktop) Snapshot(o *Output) *image.RGBA {
	fb := o.newFramebuffer()

	for _, w := range d.windows {
		if w.output == o {
			d.drawView(fb, o, w.toplevel.XdgSurface(), w.view)
		}
	}
	for _, pv := range d.popups {
		d.drawView(fb, o, pv.popup.XdgSurface(), pv.view)
	}

	return fb
}

func (d *Desktop) drawView(fb *image.RGBA, o *Output, xs *xdg.Surface, v *wl.View) {
	b := v.CurrentBuffer()
	s := v.Surface()
	if (b == nil) || (s == nil) {
		return
	}

	on, pos, ok := d.origin(xs)
	if !ok || (on != o) {
		return
	}

	r := image.Rectangle{Min: pos, Max: pos.Add(s.DestinationSize())}
	drawBuffer(fb, o.toPixels(r), b)
}
