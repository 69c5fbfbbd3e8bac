package metadata

/**
 * @brief A structure to hold decoded image data.
 */
type ImageData struct {
	/** @brief The number of channels. Always 4 for images meant for textures. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image, tightly packed rows. */
	Pixels []uint8
}

/** @brief The number of bytes in a single row of pixels. */
func (i *ImageData) RowPitch() uint32 {
	return i.Width * uint32(i.ChannelCount)
}
