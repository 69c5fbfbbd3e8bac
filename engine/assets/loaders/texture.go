package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

/**
 * @brief Builds a width x height RGBA texture made of vertical bands, one per
 * colour, left to right.
 */
func GenerateTexture(width, height uint32, bands []color.RGBA) *metadata.ImageData {
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	if len(bands) == 0 {
		bands = []color.RGBA{{255, 0, 255, 255}}
	}
	for x := 0; x < int(width); x++ {
		c := bands[x*len(bands)/int(width)]
		for y := 0; y < int(height); y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return ToImageData(img)
}

// WritePNG stores RGBA image data at path, creating parent directories.
func WritePNG(path string, data *metadata.ImageData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img := &image.RGBA{
		Pix:    data.Pixels,
		Stride: int(data.RowPitch()),
		Rect:   image.Rect(0, 0, int(data.Width), int(data.Height)),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
