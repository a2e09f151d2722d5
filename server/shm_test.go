package wl

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"deedles.dev/wlcore/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShmStorageImage(t *testing.T) {
	const width, height, stride = 2, 2, 12

	data := make([]byte, stride*height)
	binary.LittleEndian.PutUint32(data[0:], 0xff102030)
	binary.LittleEndian.PutUint32(data[4:], 0x00405060)
	binary.LittleEndian.PutUint32(data[stride:], 0xff0000ff)

	file, err := shm.Create("wlcore-test", int64(len(data)))
	require.NoError(t, err)
	_, err = file.WriteAt(data, 0)
	require.NoError(t, err)

	pool, err := shm.NewPool(file, len(data))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Unref() })

	at := func(img image.Image, x, y int) color.RGBA {
		return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	}

	argb := ShmStorage{pool: pool, width: width, height: height, stride: stride, format: ShmFormatArgb8888}
	img := argb.Image()
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, width, height), img.Bounds())
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, at(img, 0, 0))
	assert.Equal(t, color.RGBA{}, at(img, 1, 0))
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, at(img, 0, 1), "rows are read at the stride")

	xrgb := argb
	xrgb.format = ShmFormatXrgb8888
	assert.Equal(t, color.RGBA{R: 0x40, G: 0x50, B: 0x60, A: 0xff}, at(xrgb.Image(), 1, 0), "xrgb8888 ignores alpha")

	outside := argb
	outside.offset = len(data)
	assert.Nil(t, outside.Image())
}
