package headless

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type SwapChain struct {
	object
	desc renderer.Texture2DDesc
}

// GetBuffer returns a new reference to the back buffer; the caller releases it.
func (s *SwapChain) GetBuffer(index uint32) (renderer.Texture2D, error) {
	if err := s.rec.check("GetBuffer"); err != nil {
		return nil, err
	}
	if index != 0 {
		return nil, fmt.Errorf("back buffer %d: %w", index, core.ErrInvalidUsage)
	}
	rowBytes := s.desc.Width * renderer.FormatSize(s.desc.Format)
	return &Texture2D{
		object: s.rec.track(KindTexture2D),
		desc:   s.desc,
		pixels: make([]byte, rowBytes*s.desc.Height),
	}, nil
}

func (s *SwapChain) Present(syncInterval uint32) error {
	if err := s.rec.check("Present"); err != nil {
		return err
	}
	if s.Released() {
		return fmt.Errorf("present: %w", core.ErrResourceReleased)
	}
	s.rec.present(syncInterval)
	return nil
}
