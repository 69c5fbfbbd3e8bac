package systems

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

type MeshFactory struct {
	device         *GraphicsDevice
	onVertexChange func()

	Mesh         *metadata.Mesh
	VertexBuffer renderer.Buffer
	IndexBuffer  renderer.Buffer
}

func NewMeshFactory(gd *GraphicsDevice) *MeshFactory {
	return &MeshFactory{device: gd}
}

// SetVertexChangeHook registers the callback fired by SetVertices.
func (mf *MeshFactory) SetVertexChangeHook(fn func()) {
	mf.onVertexChange = fn
}

/**
 * @brief Replaces the CPU side vertices of the uploaded mesh. The vertex
 * buffer keeps its size, so the count must not change.
 */
func (mf *MeshFactory) SetVertices(vertices []math.Vertex3D) error {
	if mf.Mesh == nil || mf.VertexBuffer == nil {
		return fmt.Errorf("set vertices before upload: %w", core.ErrNotInitialized)
	}
	if len(vertices) != len(mf.Mesh.Vertices) {
		return fmt.Errorf("%d vertices into a buffer of %d: %w", len(vertices), len(mf.Mesh.Vertices), core.ErrInvalidUsage)
	}
	copy(mf.Mesh.Vertices, vertices)
	if mf.onVertexChange != nil {
		mf.onVertexChange()
	}
	return nil
}

/**
 * @brief Builds the unit quad centred on the origin in the z = 0 plane,
 * facing -z, as two clockwise triangles.
 */
func (mf *MeshFactory) GenerateMesh() *metadata.Mesh {
	bottomLeft := math.NewVec3(-0.5, -0.5, 0.0)
	topLeft := math.NewVec3(-0.5, 0.5, 0.0)
	topRight := math.NewVec3(0.5, 0.5, 0.0)
	bottomRight := math.NewVec3(0.5, -0.5, 0.0)

	normal := bottomLeft.Sub(topLeft).Cross(bottomLeft.Sub(topRight)).Normalized()

	mf.Mesh = &metadata.Mesh{
		Vertices: []math.Vertex3D{
			{Position: bottomLeft, Texcoord: math.NewVec2(0.0, 1.0), Normal: normal},
			{Position: topLeft, Texcoord: math.NewVec2(0.0, 0.0), Normal: normal},
			{Position: topRight, Texcoord: math.NewVec2(1.0, 0.0), Normal: normal},
			{Position: bottomRight, Texcoord: math.NewVec2(1.0, 1.0), Normal: normal},
		},
		Indices: []uint32{
			0, 1, 2,
			0, 2, 3,
		},
	}
	return mf.Mesh
}

// Upload creates a CPU-writable vertex buffer and an immutable index buffer.
func (mf *MeshFactory) Upload(mesh *metadata.Mesh) error {
	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrBufferSetup, err)
	}
	arena := mf.device.Arena()

	vertices := mesh.VertexBytes()
	vb, err := mf.device.Device.CreateBuffer(&renderer.BufferDesc{
		ByteWidth:      uint32(len(vertices)),
		Usage:          renderer.UsageDynamic,
		BindFlags:      renderer.BindVertexBuffer,
		CPUAccessFlags: renderer.CPUAccessWrite,
	}, &renderer.SubresourceData{SysMem: vertices})
	if err != nil {
		e := fmt.Errorf("%w: vertex buffer: %w", core.ErrBufferSetup, err)
		core.LogError(e.Error())
		return e
	}
	mf.VertexBuffer = vb
	arena.Track("vertex buffer", vb)

	indices := mesh.IndexBytes()
	ib, err := mf.device.Device.CreateBuffer(&renderer.BufferDesc{
		ByteWidth: uint32(len(indices)),
		Usage:     renderer.UsageImmutable,
		BindFlags: renderer.BindIndexBuffer,
	}, &renderer.SubresourceData{SysMem: indices})
	if err != nil {
		e := fmt.Errorf("%w: index buffer: %w", core.ErrBufferSetup, err)
		core.LogError(e.Error())
		return e
	}
	mf.IndexBuffer = ib
	arena.Track("index buffer", ib)

	mf.Mesh = mesh
	return nil
}
