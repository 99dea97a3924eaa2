package loaders

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

type ShaderLoader struct{}

// Load reads a SPIR-V module. The bytes are checked for size and magic but otherwise returned as is.
func (sl *ShaderLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	data, err := readBinary(path)
	if err != nil {
		return nil, err
	}
	if err := checkSPIRV(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}

func checkSPIRV(data []byte) error {
	if len(data) < 20 || len(data)%4 != 0 {
		return fmt.Errorf("spir-v module of %d bytes is truncated", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != spirvMagic {
		return fmt.Errorf("bad spir-v magic %#x", magic)
	}
	return nil
}
