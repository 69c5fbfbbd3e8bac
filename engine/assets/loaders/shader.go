package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/quadcore/engine/core"
)

type ShaderLoader struct{}

// LoadBytecode reads a precompiled shader binary. Validating the blob is up
// to the backend that consumes it.
func (sl *ShaderLoader) LoadBytecode(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, core.ErrInvalidBytecode)
	}
	return data, nil
}
