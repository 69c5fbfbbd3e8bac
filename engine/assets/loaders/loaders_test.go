package loaders

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
)

func TestGenerateTextureBands(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	data := GenerateTexture(4, 2, []color.RGBA{red, blue})

	if data.Width != 4 || data.Height != 2 || data.ChannelCount != 4 {
		t.Fatalf("unexpected image %dx%dx%d", data.Width, data.Height, data.ChannelCount)
	}
	if len(data.Pixels) != 4*2*4 {
		t.Fatalf("expected 32 bytes, got %d", len(data.Pixels))
	}
	// pixel (1, 1) is red, pixel (2, 0) is blue
	if data.Pixels[(1*4+1)*4] != 255 || data.Pixels[(0*4+2)*4+2] != 255 {
		t.Errorf("unexpected band layout %v", data.Pixels)
	}
}

func TestImageLoaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textures", "bands.png")
	in := GenerateTexture(8, 4, []color.RGBA{{10, 20, 30, 255}, {40, 50, 60, 255}})
	if err := WritePNG(path, in); err != nil {
		t.Fatalf("failed to write png: %v", err)
	}

	out, err := (&ImageLoader{}).Decode(path)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if out.Width != 8 || out.Height != 4 || out.ChannelCount != 4 {
		t.Fatalf("unexpected image %dx%dx%d", out.Width, out.Height, out.ChannelCount)
	}
	for i := range in.Pixels {
		if in.Pixels[i] != out.Pixels[i] {
			t.Fatalf("pixel byte %d: expected %d, got %d", i, in.Pixels[i], out.Pixels[i])
		}
	}
}

func TestImageLoaderExpandsGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gray.png")
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 128})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := png.Encode(f, gray); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()

	out, err := (&ImageLoader{}).Decode(path)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(out.Pixels) != 16 {
		t.Fatalf("expected 16 RGBA bytes, got %d", len(out.Pixels))
	}
	if out.Pixels[4] != 128 || out.Pixels[5] != 128 || out.Pixels[7] != 255 {
		t.Errorf("gray pixel not expanded to RGBA: %v", out.Pixels[4:8])
	}
}

func TestImageLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (&ImageLoader{}).Decode(filepath.Join(dir, "missing.png")); !errors.Is(err, core.ErrTextureLoad) {
		t.Errorf("expected ErrTextureLoad for missing file, got %v", err)
	}
	junk := filepath.Join(dir, "junk.png")
	_ = os.WriteFile(junk, []byte("not an image"), 0o644)
	if _, err := (&ImageLoader{}).Decode(junk); !errors.Is(err, core.ErrTextureLoad) {
		t.Errorf("expected ErrTextureLoad for junk file, got %v", err)
	}
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.spv")
	_ = os.WriteFile(empty, nil, 0o644)
	if _, err := (&ShaderLoader{}).LoadBytecode(empty); !errors.Is(err, core.ErrInvalidBytecode) {
		t.Errorf("expected ErrInvalidBytecode, got %v", err)
	}
	blob := filepath.Join(dir, "vs.spv")
	_ = os.WriteFile(blob, []byte{0x03, 0x02, 0x23, 0x07}, 0o644)
	data, err := (&ShaderLoader{}).LoadBytecode(blob)
	if err != nil || len(data) != 4 {
		t.Errorf("unexpected result %v, %v", data, err)
	}
}
