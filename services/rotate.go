package services

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/yourusername/exifsnap/models"
)

// DefaultQuality is used when re-encoding rotated pixels.
const DefaultQuality = 100

// quarterTurns holds cos and sin of each supported angle, exact.
var quarterTurns = map[int][2]float64{
	0:   {1, 0},
	90:  {0, 1},
	180: {-1, 0},
	270: {0, -1},
}

// NormalizeDegrees folds degrees into 0..270 and rejects anything that is
// not a multiple of 90.
func NormalizeDegrees(degrees int) (int, error) {
	d := models.NormalizeRotation(degrees)
	if d%90 != 0 {
		return 0, fmt.Errorf("rotation %d is not a multiple of 90", degrees)
	}
	return d, nil
}

// RotateImage turns src clockwise by degrees about the canvas centre. For 90
// and 270 the output canvas swaps width and height.
func RotateImage(src image.Image, degrees int) (*image.RGBA, error) {
	d, err := NormalizeDegrees(degrees)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dw, dh := b.Dx(), b.Dy()
	if d%180 == 90 {
		dw, dh = dh, dw
	}
	cos, sin := quarterTurns[d][0], quarterTurns[d][1]

	// Move the source centre to the origin, rotate, move to the dest centre.
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	s2d := f64.Aff3{
		cos, -sin, float64(dw)/2 - cos*cx + sin*cy,
		sin, cos, float64(dh)/2 - sin*cx - cos*cy,
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.NearestNeighbor.Transform(dst, s2d, src, b, xdraw.Src, nil)
	return dst, nil
}

// Rotate rotates src and re-encodes it as JPEG. It always re-encodes, even at
// 0 degrees, so every exported image goes through exactly one encode.
func Rotate(src image.Image, degrees, quality int) ([]byte, error) {
	rotated, err := RotateImage(src, degrees)
	if err != nil {
		return nil, err
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	out, err := EncodeJPEG(rotated, quality)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return out, nil
}
