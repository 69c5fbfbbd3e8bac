package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

/**
 * @brief What the Vulkan backend needs from the window on top of its client
 * size: the instance extensions it requires and a way to build the surface.
 */
type Surface interface {
	renderer.Surface
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

type Driver struct {
	appName string
	debug   bool
}

// NewDriver returns a driver; debug enables validation layers and the report callback.
func NewDriver(appName string, debug bool) *Driver {
	return &Driver{appName: appName, debug: debug}
}

func (d *Driver) CreateDeviceAndSwapChain(surface renderer.Surface, desc *renderer.SwapChainDesc) (renderer.Device, renderer.Context, renderer.SwapChain, error) {
	window, ok := surface.(Surface)
	if !ok {
		return nil, nil, nil, fmt.Errorf("surface cannot host a Vulkan swapchain: %w", core.ErrInvalidUsage)
	}
	width, height := window.ClientSize()
	if width == 0 || height == 0 {
		return nil, nil, nil, fmt.Errorf("surface of %dx%d: %w", width, height, core.ErrInvalidUsage)
	}
	if desc.BufferCount == 0 || desc.SampleCount > 1 {
		return nil, nil, nil, fmt.Errorf("swapchain of %d buffers with %d samples: %w", desc.BufferCount, desc.SampleCount, core.ErrInvalidUsage)
	}
	format := vkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, nil, nil, fmt.Errorf("swapchain format %s: %w", desc.Format, core.ErrInvalidUsage)
	}

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, nil, nil, fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrDeviceSetup)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", core.ErrDeviceSetup, err)
	}

	ctx := newVulkanContext()
	device := &Device{base: base{ctx: ctx}}
	fail := func(err error) (renderer.Device, renderer.Context, renderer.SwapChain, error) {
		if ctx.Swapchain != nil {
			ctx.Swapchain.Destroy(ctx)
			ctx.Swapchain = nil
		}
		if ctx.MainRenderpass != nil {
			ctx.MainRenderpass.Destroy(ctx)
			ctx.MainRenderpass = nil
		}
		device.Release()
		return nil, nil, nil, err
	}

	if err := d.createInstance(ctx, window.RequiredInstanceExtensions()); err != nil {
		return fail(err)
	}
	if d.debug {
		if err := d.createDebugCallback(ctx); err != nil {
			return fail(err)
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	vkSurface, err := window.CreateSurface(ctx.Instance)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", core.ErrDeviceSetup, err))
	}
	ctx.Surface = vkSurface

	if err := DeviceCreate(ctx); err != nil {
		return fail(err)
	}

	sc, err := SwapchainCreate(ctx, width, height, format, desc.VSync)
	if err != nil {
		return fail(err)
	}
	ctx.Swapchain = sc

	rp, err := RenderpassCreate(ctx, sc.ImageFormat.Format, sc.Extent.Width, sc.Extent.Height)
	if err != nil {
		return fail(err)
	}
	ctx.MainRenderpass = rp

	immediate, err := newImmediateContext(ctx)
	if err != nil {
		return fail(err)
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return device, immediate, &SwapChain{
		base:      base{ctx: ctx},
		swapchain: sc,
		immediate: immediate,
		format:    desc.Format,
	}, nil
}

func (d *Driver) createInstance(ctx *VulkanContext, windowExtensions []string) error {
	// negative viewport heights need 1.1
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(d.appName),
		PEngineName:        safeString("quadcore"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := []string{vk.KhrSurfaceExtensionName}
	for _, ext := range windowExtensions {
		if !contains(extensions, ext) {
			extensions = append(extensions, ext)
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if d.debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation layer %s is not installed, continuing without it", validationLayerName)
		}
	}
	core.LogDebug("Required instance extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = safeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = safeStrings(layers)

	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(&createInfo, ctx.Allocator, &instance)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDeviceSetup, err)
	}
	ctx.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDeviceSetup, err)
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if cString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (d *Driver) createDebugCallback(ctx *VulkanContext) error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := check("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(ctx.Instance, &debugCreateInfo, ctx.Allocator, &dbg)); err != nil {
		return err
	}
	ctx.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
