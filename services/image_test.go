package services

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage(t *testing.T) {
	img, format, err := DecodeImage(makeJPEG(t, 6, 3))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Pt(6, 3), img.Bounds().Size())

	_, _, err = DecodeImage([]byte("nope"))
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestProcessImageTinyInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 100, G: 200, B: 50, A: 255})
	meta := ProcessImage(img, "png")
	assert.Equal(t, 1, meta.Width)
	assert.Equal(t, 1, meta.Height)
	assert.Equal(t, "#468c23", meta.DominantColor)
	assert.True(t, strings.HasPrefix(meta.DominantColor, "#"))
}

func TestProcessImageBlurhash(t *testing.T) {
	meta := ProcessImage(gradient(32, 16), "jpeg")
	assert.NotEmpty(t, meta.Blurhash)
	assert.Equal(t, "jpeg", meta.Format)
}

func TestFitWithin(t *testing.T) {
	src := gradient(200, 100)
	assert.Same(t, src, FitWithin(src, 0))
	assert.Same(t, src, FitWithin(src, 200))
	assert.Equal(t, image.Pt(50, 25), FitWithin(src, 50).Bounds().Size())
	assert.Equal(t, image.Pt(25, 50), FitWithin(gradient(100, 200), 50).Bounds().Size())
	assert.Equal(t, image.Pt(100, 1), FitWithin(gradient(300, 2), 100).Bounds().Size())
}

func TestFlatten(t *testing.T) {
	opaque := gradient(2, 2)
	assert.Same(t, opaque, Flatten(opaque, color.White))

	clear := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	out := Flatten(clear, color.White)
	assert.True(t, out.(*image.RGBA).Opaque())
	r, g, b, a := out.At(1, 1).RGBA()
	assert.Equal(t, [4]uint32{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF}, [4]uint32{r, g, b, a})
}

func TestNewImageRecord(t *testing.T) {
	raw := withExif(t, sampleTable(), 8, 4)
	rec := NewImageRecord("trip.jpg", raw, testLogger())
	assert.Equal(t, "trip.jpg", rec.Name)
	assert.Equal(t, 8, rec.Width)
	assert.Equal(t, 4, rec.Height)
	assert.False(t, rec.MetadataDegraded)
	require.NotNil(t, rec.CaptureTime)
	assert.Equal(t, 2020, rec.CaptureTime.Year())
	assert.Equal(t, time.January, rec.CaptureTime.Month())
	assert.NotEmpty(t, rec.Metadata)
	assert.True(t, FlashFired(rec.Metadata))

	broken := NewImageRecord("broken.jpg", []byte("garbage"), testLogger())
	assert.True(t, broken.MetadataDegraded)
	assert.Zero(t, broken.Width)
	assert.Nil(t, broken.CaptureTime)
}
