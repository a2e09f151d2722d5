// Package region implements sets of pixels described as unions of
// rectangles. Wayland uses regions for damage, input and opaque areas.
package region

import (
	"fmt"
	"image"
	"strings"
)

// Region is a set of pixels. It is stored as a list of non-empty,
// non-overlapping rectangles. The zero Region is empty. Regions are
// values: every operation returns a new Region and never modifies its
// receiver.
type Region struct {
	rects []image.Rectangle
}

// Rect returns a region covering r.
func Rect(r image.Rectangle) Region {
	r = r.Canon()
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []image.Rectangle{r}}
}

// XYWH returns a region covering the rectangle with its top-left
// corner at (x, y) and the given size. A negative size yields an empty
// region.
func XYWH(x, y, w, h int) Region {
	if (w <= 0) || (h <= 0) {
		return Region{}
	}
	return Rect(image.Rect(x, y, x+w, y+h))
}

// Empty reports whether r contains no pixels.
func (r Region) Empty() bool {
	return len(r.rects) == 0
}

// Rects returns the rectangles that make up r. The returned slice must
// not be modified.
func (r Region) Rects() []image.Rectangle {
	return r.rects
}

// Bounds returns the smallest rectangle containing r.
func (r Region) Bounds() (b image.Rectangle) {
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Area returns the number of pixels in r.
func (r Region) Area() (a int) {
	for _, rect := range r.rects {
		a += rect.Dx() * rect.Dy()
	}
	return a
}

// Union returns the pixels that are in r or in o.
func (r Region) Union(o Region) Region {
	out := r
	for _, rect := range o.rects {
		out = out.AddRect(rect)
	}
	return out
}

// AddRect returns r with rect added to it.
func (r Region) AddRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	if rect.Empty() {
		return r
	}

	pieces := []image.Rectangle{rect}
	for _, e := range r.rects {
		pieces = subtractAll(pieces, e)
		if len(pieces) == 0 {
			return r
		}
	}

	rects := make([]image.Rectangle, 0, len(r.rects)+len(pieces))
	rects = append(rects, r.rects...)
	rects = append(rects, pieces...)
	return Region{rects: rects}
}

// SubtractRect returns r without the pixels in rect.
func (r Region) SubtractRect(rect image.Rectangle) Region {
	return Region{rects: subtractAll(r.rects, rect.Canon())}
}

// Subtract returns the pixels that are in r but not in o.
func (r Region) Subtract(o Region) Region {
	rects := r.rects
	for _, rect := range o.rects {
		rects = subtractAll(rects, rect)
	}
	return Region{rects: rects}
}

// IntersectRect returns the pixels of r that are inside rect.
func (r Region) IntersectRect(rect image.Rectangle) Region {
	rects := make([]image.Rectangle, 0, len(r.rects))
	for _, e := range r.rects {
		i := e.Intersect(rect)
		if !i.Empty() {
			rects = append(rects, i)
		}
	}
	if len(rects) == 0 {
		return Region{}
	}
	return Region{rects: rects}
}

// Translate returns r moved by p.
func (r Region) Translate(p image.Point) Region {
	if r.Empty() {
		return r
	}

	rects := make([]image.Rectangle, 0, len(r.rects))
	for _, e := range r.rects {
		rects = append(rects, e.Add(p))
	}
	return Region{rects: rects}
}

// Map returns the union of f applied to each rectangle of r. It is
// used for coordinate space conversions that may grow rectangles.
func (r Region) Map(f func(image.Rectangle) image.Rectangle) (out Region) {
	for _, e := range r.rects {
		out = out.AddRect(f(e))
	}
	return out
}

// Contains reports whether the pixel at p is in r.
func (r Region) Contains(p image.Point) bool {
	for _, e := range r.rects {
		if p.In(e) {
			return true
		}
	}
	return false
}

// ContainsRect reports whether every pixel of rect is in r. An empty
// rect is contained in every region.
func (r Region) ContainsRect(rect image.Rectangle) bool {
	pieces := []image.Rectangle{rect.Canon()}
	if pieces[0].Empty() {
		return true
	}
	for _, e := range r.rects {
		pieces = subtractAll(pieces, e)
		if len(pieces) == 0 {
			return true
		}
	}
	return false
}

// Equal reports whether r and o contain exactly the same pixels.
func (r Region) Equal(o Region) bool {
	return r.Subtract(o).Empty() && o.Subtract(r).Empty()
}

func (r Region) String() string {
	parts := make([]string, 0, len(r.rects))
	for _, e := range r.rects {
		parts = append(parts, e.String())
	}
	return fmt.Sprintf("{%v}", strings.Join(parts, " "))
}

func subtractAll(rects []image.Rectangle, b image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, a := range rects {
		out = append(out, subtract(a, b)...)
	}
	return out
}

// subtract splits a into at most four rectangles that together cover
// a minus b.
func subtract(a, b image.Rectangle) []image.Rectangle {
	if !a.Overlaps(b) {
		return []image.Rectangle{a}
	}

	out := make([]image.Rectangle, 0, 4)
	if b.Min.Y > a.Min.Y {
		out = append(out, image.Rect(a.Min.X, a.Min.Y, a.Max.X, b.Min.Y))
	}
	if b.Max.Y < a.Max.Y {
		out = append(out, image.Rect(a.Min.X, b.Max.Y, a.Max.X, a.Max.Y))
	}

	y0, y1 := max(a.Min.Y, b.Min.Y), min(a.Max.Y, b.Max.Y)
	if b.Min.X > a.Min.X {
		out = append(out, image.Rect(a.Min.X, y0, b.Min.X, y1))
	}
	if b.Max.X < a.Max.X {
		out = append(out, image.Rect(b.Max.X, y0, a.Max.X, y1))
	}
	return out
}
