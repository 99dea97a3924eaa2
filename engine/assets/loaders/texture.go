package loaders

import (
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type TextureLoader struct{}

// Load decodes a PNG, JPEG, BMP, TIFF or WebP file into RGBA8 texture data.
// params may be a *metadata.ImageResourceParams.
func (tl *TextureLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	data, err := readBinary(path)
	if err != nil {
		return nil, err
	}

	flipY := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flipY = p.FlipY
	}

	img, _, err := decodeRGBA(data, flipY)
	if err != nil {
		return nil, err
	}
	texture := &metadata.TextureData{
		Width:  uint32(img.Rect.Dx()),
		Height: uint32(img.Rect.Dy()),
		Pixels: img.Pix,
	}
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(texture.Pixels)),
		Data:     texture,
	}, nil
}

func (tl *TextureLoader) Unload(*metadata.Resource) error {
	return nil
}
