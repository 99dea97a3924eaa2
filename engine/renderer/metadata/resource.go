package metadata

type ResourceType int

/** @brief Asset categories the asset manager indexes and loads. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V bytecode. */
	ResourceTypeShader
	/** @brief A decodable image used as a texture. */
	ResourceTypeImage
	/** @brief A Wavefront OBJ model. */
	ResourceTypeModel
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief []byte for shaders, *TextureData for images, *Mesh for models. */
	Data interface{}
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}
