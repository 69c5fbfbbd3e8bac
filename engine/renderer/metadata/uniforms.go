package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
)

/** @brief The size in bytes of the world/view/projection constant buffer. */
const WVPSize uint32 = 192

/**
 * @brief The vertex shader constant buffer (cb0). View and projection are
 * stored already transposed.
 */
type WVP struct {
	World      math.Mat4
	View       math.Mat4
	Projection math.Mat4
}

func (w *WVP) Bytes() []byte {
	return pack(w)
}

// pack lays out fixed-size data little-endian, blank fields as zero padding.
func pack(data interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		// only reachable with a variable-size type, which is a programming error
		panic(err)
	}
	return buf.Bytes()
}

// Unpack decodes bytes produced by one of the Bytes methods.
func Unpack[T any](data []byte) (T, error) {
	var out T
	if len(data) < binary.Size(&out) {
		return out, fmt.Errorf("need %d bytes, got %d: %w", binary.Size(&out), len(data), core.ErrBufferTooSmall)
	}
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &out)
	return out, err
}
