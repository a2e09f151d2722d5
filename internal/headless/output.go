// Package headless is a compositor without a display. It places
// windows on virtual outputs, answers window management requests, and
// can render what each output would show into an image.
package headless

import (
	"image"
	"image/color"

	"deedles.dev/wlcore/internal/config"
	wl "deedles.dev/wlcore/server"
	"golang.org/x/image/draw"
)

// Output is a virtual output. Coordinates of windows on it are in
// logical units relative to the top-left corner of its geometry.
type Output struct {
	*wl.Output

	// Background fills the parts of a snapshot that no window covers.
	Background color.Color
}

// NewOutput creates an output from its configuration.
func NewOutput(c config.OutputConfig) *Output {
	o := wl.NewOutput(c.Name, c.Geometry(), int32(c.Scale))
	o.AvailableGeometry = c.AvailableGeometry()
	return &Output{
		Output:     o,
		Background: color.Black,
	}
}

// Bounds returns the logical area of the output.
func (o *Output) Bounds() image.Rectangle {
	return image.Rectangle{Max: o.Geometry.Size().Div(int(o.Scale))}
}

// Available returns the logical area of the output that windows may be
// maximized into.
func (o *Output) Available() image.Rectangle {
	r := o.AvailableGeometry.Sub(o.Geometry.Min)
	return image.Rectangle{
		Min: r.Min.Div(int(o.Scale)),
		Max: r.Max.Div(int(o.Scale)),
	}
}

// toPixels converts a logical rectangle on o into framebuffer pixels.
func (o *Output) toPixels(r image.Rectangle) image.Rectangle {
	return image.Rectangle{
		Min: r.Min.Mul(int(o.Scale)),
		Max: r.Max.Mul(int(o.Scale)),
	}
}

func (o *Output) newFramebuffer() *image.RGBA {
	fb := image.NewRGBA(image.Rectangle{Max: o.Geometry.Size()})
	draw.Draw(fb, fb.Bounds(), image.NewUniform(o.Background), image.Point{}, draw.Src)
	return fb
}

// drawBuffer draws the pixels of b into dst at r, scaling them if the
// sizes differ.
func drawBuffer(dst draw.Image, r image.Rectangle, b *wl.Buffer) {
	src := b.Image()
	if src == nil {
		return
	}

	if src.Bounds().Size() == r.Size() {
		draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
}
