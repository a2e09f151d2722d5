package region

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRectMergesOverlap(t *testing.T) {
	r := XYWH(0, 0, 10, 10).AddRect(image.Rect(5, 5, 15, 15))

	assert.Equal(t, 100+100-25, r.Area())
	assert.Equal(t, image.Rect(0, 0, 15, 15), r.Bounds())
	assert.True(t, r.Contains(image.Pt(14, 14)))
	assert.False(t, r.Contains(image.Pt(14, 0)))
}

func TestAddRectAlreadyCovered(t *testing.T) {
	r := XYWH(0, 0, 10, 10)
	r2 := r.AddRect(image.Rect(2, 2, 4, 4))

	assert.Len(t, r2.Rects(), 1)
	assert.True(t, r.Equal(r2))
}

func TestSubtractRectPunchesHole(t *testing.T) {
	r := XYWH(0, 0, 10, 10).SubtractRect(image.Rect(3, 3, 6, 6))

	assert.Equal(t, 100-9, r.Area())
	assert.False(t, r.Contains(image.Pt(4, 4)))
	assert.True(t, r.Contains(image.Pt(2, 4)))
	assert.True(t, r.Contains(image.Pt(7, 4)))
	assert.False(t, r.ContainsRect(image.Rect(0, 0, 10, 10)))
	assert.True(t, r.ContainsRect(image.Rect(0, 0, 10, 3)))
}

func TestIntersectRect(t *testing.T) {
	r := XYWH(-5, -5, 10, 10).AddRect(image.Rect(20, 20, 30, 30))
	i := r.IntersectRect(image.Rect(0, 0, 25, 25))

	assert.Equal(t, 25+25, i.Area())
	assert.True(t, XYWH(0, 0, 5, 5).AddRect(image.Rect(20, 20, 25, 25)).Equal(i))
}

func TestEmpty(t *testing.T) {
	var r Region
	assert.True(t, r.Empty())
	assert.True(t, XYWH(0, 0, 0, 10).Empty())
	assert.True(t, XYWH(0, 0, 10, -1).Empty())
	assert.True(t, XYWH(0, 0, 4, 4).SubtractRect(image.Rect(0, 0, 4, 4)).Empty())
	assert.True(t, r.ContainsRect(image.Rectangle{}))
}

func TestTranslateAndMap(t *testing.T) {
	r := XYWH(0, 0, 2, 2).Translate(image.Pt(3, 4))
	assert.Equal(t, image.Rect(3, 4, 5, 6), r.Bounds())

	doubled := r.Map(func(rect image.Rectangle) image.Rectangle {
		return image.Rectangle{Min: rect.Min.Mul(2), Max: rect.Max.Mul(2)}
	})
	assert.Equal(t, image.Rect(6, 8, 10, 12), doubled.Bounds())
	assert.Equal(t, 16, doubled.Area())
}

func TestUnionIsIdempotent(t *testing.T) {
	a := XYWH(0, 0, 10, 5)
	b := XYWH(0, 5, 10, 5)
	u := a.Union(b).Union(b).Union(a)

	assert.Equal(t, 100, u.Area())
	assert.True(t, u.Equal(XYWH(0, 0, 10, 10)))
}
