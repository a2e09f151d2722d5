package wl

import (
	"fmt"
	"image"
)

// Output is a display area that views are shown on. It is not
// advertised to clients. Shells use it to size maximized and
// fullscreen windows.
type Output struct {
	Name string

	// Geometry is the area of the output in the global compositor
	// space.
	Geometry image.Rectangle

	// AvailableGeometry is the part of Geometry that is not covered by
	// panels and the like.
	AvailableGeometry image.Rectangle

	Scale int32
}

// NewOutput returns an output whose available geometry is all of geom.
func NewOutput(name string, geom image.Rectangle, scale int32) *Output {
	if scale < 1 {
		scale = 1
	}

	return &Output{
		Name:              name,
		Geometry:          geom,
		AvailableGeometry: geom,
		Scale:             scale,
	}
}

// LogicalSize is the size of the available geometry in surface-local
// units.
func (o *Output) LogicalSize() image.Point {
	return o.AvailableGeometry.Size().Div(int(o.Scale))
}

func (o *Output) String() string {
	return fmt.Sprintf("%v %v", o.Name, o.Geometry)
}
