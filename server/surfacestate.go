package wl

import (
	"image"

	"deedles.dev/wlcore/region"
)

// SurfaceState is one side of a surface's double-buffered state.
// Requests modify the pending state, and commits transfer it to the
// current state.
//
// Buffer, Offset, NewlyAttached, Damage and DamageInBuffer only apply
// to a single commit and are reset in the pending state afterwards.
// The rest persist until the client changes them again. BufferSize,
// DestinationSize, HasContent and Opaque are computed during commit
// and are only meaningful in the current state.
type SurfaceState struct {
	Buffer         *Buffer
	Offset         image.Point
	NewlyAttached  bool
	Damage         region.Region
	DamageInBuffer bool

	// InputRegion is only used if InputInfinite is false.
	InputRegion     region.Region
	InputInfinite   bool
	OpaqueRegion    region.Region
	BufferScale     int32
	BufferTransform Transform

	// SourceGeometry is the part of the buffer that is shown, in
	// surface-local coordinates. It is unset if empty.
	SourceGeometry image.Rectangle

	BufferSize      image.Point
	DestinationSize image.Point
	HasContent      bool
	Opaque          bool
}

func initialSurfaceState() SurfaceState {
	return SurfaceState{
		InputInfinite:   true,
		BufferScale:     1,
		BufferTransform: TransformNormal,
	}
}

func (s *SurfaceState) resetPerCommit() {
	s.Buffer = nil
	s.Offset = image.Point{}
	s.NewlyAttached = false
	s.Damage = region.Region{}
	s.DamageInBuffer = false
}

// destinationSize is the size of the surface in surface-local
// coordinates. The buffer transform does not swap the dimensions.
func destinationSize(source image.Rectangle, bufferSize image.Point, scale int32) image.Point {
	if !source.Empty() {
		return source.Size()
	}
	if scale < 1 {
		scale = 1
	}
	return bufferSize.Div(int(scale))
}

// surfaceDamage converts damage to surface-local coordinates. Buffer
// damage is scaled down, rounding outwards so that no damaged pixel is
// lost.
func surfaceDamage(damage region.Region, inBuffer bool, scale int32) region.Region {
	if !inBuffer || (scale <= 1) {
		return damage
	}

	s := int(scale)
	return damage.Map(func(r image.Rectangle) image.Rectangle {
		return image.Rectangle{
			Min: image.Pt(floorDiv(r.Min.X, s), floorDiv(r.Min.Y, s)),
			Max: image.Pt(ceilDiv(r.Max.X, s), ceilDiv(r.Max.Y, s)),
		}
	})
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
