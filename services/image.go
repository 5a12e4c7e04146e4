package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type ImageMeta struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	Blurhash      string `json:"blurhash"`
	DominantColor string `json:"dominant_color"`
}

// DecodeImage decodes any registered raster format. Failures are *DecodeError.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	return img, format, nil
}

// ProcessImage computes the display attributes shown in the thumbnail grid.
func ProcessImage(img image.Image, format string) ImageMeta {
	bounds := img.Bounds()
	meta := ImageMeta{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}

	// Placeholder shown while the thumbnail loads.
	if hash, err := blurhash.Encode(4, 3, img); err == nil {
		meta.Blurhash = hash
	}

	meta.DominantColor = dominantColor(img)
	return meta
}

const (
	colorSampleGrid  = 10
	defaultCardColor = "#1a1a2e"
)

// dominantColor averages a grid of samples and darkens the result to 70% so
// it can sit behind the thumbnail as a card background.
func dominantColor(img image.Image) string {
	b := img.Bounds()
	if b.Empty() {
		return defaultCardColor
	}
	var r, g, bl, n uint64
	for i := 0; i < colorSampleGrid; i++ {
		y := b.Min.Y + (2*i+1)*b.Dy()/(2*colorSampleGrid)
		for j := 0; j < colorSampleGrid; j++ {
			x := b.Min.X + (2*j+1)*b.Dx()/(2*colorSampleGrid)
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			r += uint64(c.R)
			g += uint64(c.G)
			bl += uint64(c.B)
			n++
		}
	}
	return fmt.Sprintf("#%02x%02x%02x", r/n*7/10, g/n*7/10, bl/n*7/10)
}
