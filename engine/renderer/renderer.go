package renderer

import (
	"fmt"
	"strings"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func (r RendererType) String() string {
	switch r {
	case Vulkan:
		return "vulkan"
	case Headless:
		return "headless"
	}
	return "unknown"
}

// ParseRendererType maps a configuration or flag value to a backend type.
func ParseRendererType(name string) (RendererType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vulkan", "":
		return Vulkan, nil
	case "headless":
		return Headless, nil
	}
	return Vulkan, fmt.Errorf("unknown renderer backend %q", name)
}
