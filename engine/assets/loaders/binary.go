package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Files larger than this are rejected before they are read.
const maxAssetSize = 256 << 20

func readBinary(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxAssetSize {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), maxAssetSize)
	}
	return io.ReadAll(f)
}

// resourceName is the file name without directory or extensions.
func resourceName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}
