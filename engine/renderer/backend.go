package renderer

/** @brief Anything created by a Device. Release must be safe to call once. */
type Resource interface {
	Release()
}

type Buffer interface {
	Resource
	Desc() BufferDesc
}

type Texture2D interface {
	Resource
	Desc() Texture2DDesc
}

type RenderTargetView interface{ Resource }
type DepthStencilView interface{ Resource }
type ShaderResourceView interface{ Resource }
type RasterizerState interface{ Resource }
type DepthStencilState interface{ Resource }
type SamplerState interface{ Resource }
type VertexShader interface{ Resource }
type PixelShader interface{ Resource }
type InputLayout interface{ Resource }

/**
 * @brief The native window collaborator. Backends that need more than the
 * client size (e.g. a Vulkan surface) assert for their own extension of it.
 */
type Surface interface {
	ClientSize() (width, height uint32)
}

/** @brief Creates the device, its immediate context and the swapchain. */
type Driver interface {
	CreateDeviceAndSwapChain(surface Surface, desc *SwapChainDesc) (Device, Context, SwapChain, error)
}

/** @brief Resource factory. Never records commands. */
type Device interface {
	Resource
	CreateRenderTargetView(backBuffer Texture2D) (RenderTargetView, error)
	CreateRasterizerState(desc *RasterizerDesc) (RasterizerState, error)
	CreateTexture2D(desc *Texture2DDesc, initial *SubresourceData) (Texture2D, error)
	CreateDepthStencilView(texture Texture2D) (DepthStencilView, error)
	CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilState, error)
	CreateVertexShader(bytecode []byte) (VertexShader, error)
	CreatePixelShader(bytecode []byte) (PixelShader, error)
	CreateInputLayout(elements []InputElementDesc, vsBytecode []byte) (InputLayout, error)
	CreateBuffer(desc *BufferDesc, initial *SubresourceData) (Buffer, error)
	CreateShaderResourceView(texture Texture2D) (ShaderResourceView, error)
	CreateSamplerState(desc *SamplerDesc) (SamplerState, error)
}

/** @brief The immediate context: state binding, buffer mapping and draws. */
type Context interface {
	Resource
	ClearRenderTargetView(rtv RenderTargetView, color [4]float32)
	ClearDepthStencilView(dsv DepthStencilView, flags ClearFlag, depth float32, stencil uint8)
	OMSetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)
	OMSetDepthStencilState(state DepthStencilState, stencilRef uint32)
	RSSetState(state RasterizerState)
	RSSetViewports(viewports []Viewport)
	IASetPrimitiveTopology(topology PrimitiveTopology)
	IASetInputLayout(layout InputLayout)
	IASetVertexBuffers(startSlot uint32, buffers []Buffer, strides, offsets []uint32)
	IASetIndexBuffer(buffer Buffer, format Format, offset uint32)
	VSSetShader(shader VertexShader)
	VSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	PSSetShader(shader PixelShader)
	PSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	PSSetShaderResources(startSlot uint32, views []ShaderResourceView)
	PSSetSamplers(startSlot uint32, samplers []SamplerState)
	/** @brief Maps the whole buffer. Only one mapping per buffer may be open. */
	Map(buffer Buffer, mapType MapType) ([]byte, error)
	Unmap(buffer Buffer) error
	DrawIndexed(indexCount, startIndexLocation uint32, baseVertexLocation int32) error
}

type SwapChain interface {
	Resource
	GetBuffer(index uint32) (Texture2D, error)
	Present(syncInterval uint32) error
}
