package loaders

import (
	"fmt"
	"image"
	"os"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

/**
 * @brief Decodes image files into tightly packed 8-bit RGBA pixels,
 * whatever the channel layout of the source.
 */
type ImageLoader struct{}

func (il *ImageLoader) Decode(path string) (*metadata.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTextureLoad, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", core.ErrTextureLoad, path, err)
	}
	data := ToImageData(img)
	core.LogDebug("decoded %s image %s (%dx%d)", format, path, data.Width, data.Height)
	return data, nil
}

// ToImageData converts any image to 4 channel RGBA with the origin at (0, 0).
func ToImageData(img image.Image) *metadata.ImageData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &metadata.ImageData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       rgba.Pix,
	}
}
