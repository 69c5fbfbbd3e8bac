package headless

import (
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type object struct {
	kind     string
	id       uint32
	rec      *Recorder
	released bool
}

func (o *object) Release() {
	o.rec.release(o)
}

func (o *object) Released() bool {
	o.rec.mu.Lock()
	defer o.rec.mu.Unlock()
	return o.released
}

type Buffer struct {
	object
	desc   renderer.BufferDesc
	data   []byte
	mapped bool
}

func (b *Buffer) Desc() renderer.BufferDesc {
	return b.desc
}

// Contents returns a copy of the buffer memory.
func (b *Buffer) Contents() []byte {
	return append([]byte(nil), b.data...)
}

func (b *Buffer) Mapped() bool {
	return b.mapped
}

type Texture2D struct {
	object
	desc   renderer.Texture2DDesc
	pixels []byte
}

func (t *Texture2D) Desc() renderer.Texture2DDesc {
	return t.desc
}

// Pixels returns a copy of the tightly packed texel data.
func (t *Texture2D) Pixels() []byte {
	return append([]byte(nil), t.pixels...)
}

/** @brief A render-target, depth-stencil or shader-resource view. */
type View struct {
	object
	Texture *Texture2D
}

type RasterizerState struct {
	object
	Desc renderer.RasterizerDesc
}

type DepthStencilState struct {
	object
	Desc renderer.DepthStencilDesc
}

type SamplerState struct {
	object
	Desc renderer.SamplerDesc
}

type Shader struct {
	object
	Bytecode []byte
}

type InputLayout struct {
	object
	Elements []renderer.InputElementDesc
	Offsets  []uint32
	Stride   uint32
}
