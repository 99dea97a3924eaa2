package metadata

import lin "github.com/xlab/linmath"

/** @brief The size of a render surface in pixels. */
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports a minimized or otherwise degenerate surface.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) Aspect() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

/**
 * @brief The per-frame uniform block written into the active frame slot.
 * Field order and padding follow std140 so the struct can be copied verbatim.
 */
type UniformPayload struct {
	Model      lin.Mat4x4
	View       lin.Mat4x4
	Projection lin.Mat4x4
	LightSpace lin.Mat4x4
	/** @brief xyz camera position, w unused. */
	CameraPosition lin.Vec4
	/** @brief xyz light position, w unused. */
	LightPosition lin.Vec4
	/** @brief Non-zero enables the debug visualisation in the scene shader. */
	Debug uint32
	/** @brief Seconds since the renderer started. */
	Time float32
	_    [2]uint32
}

// Bool32 converts a flag into the uint32 expected by shaders.
func Bool32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
