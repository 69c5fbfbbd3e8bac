package metadata

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
)

const (
	/** @brief The size in bytes of a packed math.Vertex3D. */
	VertexSize uint32 = 32
	/** @brief The size in bytes of a single index. */
	IndexSize uint32 = 4
)

/**
 * @brief An indexed triangle list. Created once at startup.
 */
type Mesh struct {
	/** @brief The vertices in buffer order. */
	Vertices []math.Vertex3D
	/** @brief Triangle list indices into Vertices. */
	Indices []uint32
}

/**
 * @brief Checks that the mesh is a complete triangle list and that every
 * index addresses an existing vertex.
 */
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return fmt.Errorf("mesh is empty: %w", core.ErrInvalidUsage)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a triangle list: %w", len(m.Indices), core.ErrInvalidUsage)
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("index %d (%d) out of range [0, %d): %w", i, idx, len(m.Vertices), core.ErrInvalidUsage)
		}
	}
	return nil
}

func (m *Mesh) VertexBytes() []byte {
	return pack(m.Vertices)
}

func (m *Mesh) IndexBytes() []byte {
	return pack(m.Indices)
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}
