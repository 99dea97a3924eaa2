package metadata

import lin "github.com/xlab/linmath"

/**
 * @brief Represents a single vertex in 3D space. The layout matches the
 * vertex input of both the shadow and the scene pipelines.
 */
type Vertex struct {
	/** @brief The position of the vertex */
	Position lin.Vec3
	/** @brief The normal of the vertex. */
	Normal lin.Vec3
	/** @brief The colour of the vertex. */
	Colour lin.Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord lin.Vec2
}

// Mesh is CPU-side geometry produced by the shape generators and the model loader.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// Append merges another mesh into m, rebasing its indices.
func (m *Mesh) Append(other *Mesh) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, i := range other.Indices {
		m.Indices = append(m.Indices, base+i)
	}
}
