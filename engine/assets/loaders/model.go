package loaders

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mokiat/go-data-front/decoder/obj"
	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

var defaultModelColour = lin.Vec3{1, 1, 1}

type ModelLoader struct{}

// Load decodes a Wavefront OBJ file into a single indexed triangle mesh.
func (ml *ModelLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	data, err := readBinary(path)
	if err != nil {
		return nil, err
	}
	mesh, err := decodeOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mesh.Name = resourceName(path)
	return &metadata.Resource{
		Name:     mesh.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeModel,
		DataSize: uint64(len(data)),
		Data:     mesh,
	}, nil
}

func (ml *ModelLoader) Unload(*metadata.Resource) error {
	return nil
}

/**
 * @brief Flattens every object of an OBJ model into one mesh. Polygons are
 * fan-triangulated and identical vertex references share an index. Faces
 * without normals get their flat face normal.
 */
func decodeOBJ(r io.Reader) (*metadata.Mesh, error) {
	model, err := obj.NewDecoder(obj.DefaultLimits()).Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding obj: %w", err)
	}

	mesh := &metadata.Mesh{}
	shared := map[obj.Reference]uint32{}

	for _, object := range model.Objects {
		for _, m := range object.Meshes {
			for _, face := range m.Faces {
				refs := face.References
				if len(refs) < 3 {
					continue
				}
				flat := faceNormal(model, refs)
				indexOf := func(ref obj.Reference) uint32 {
					if ref.HasNormal() {
						if i, ok := shared[ref]; ok {
							return i
						}
					}
					i := uint32(len(mesh.Vertices))
					mesh.Vertices = append(mesh.Vertices, objVertex(model, ref, flat))
					if ref.HasNormal() {
						shared[ref] = i
					}
					return i
				}
				first := indexOf(refs[0])
				prev := indexOf(refs[1])
				for _, ref := range refs[2:] {
					next := indexOf(ref)
					mesh.Indices = append(mesh.Indices, first, prev, next)
					prev = next
				}
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("obj model has no faces")
	}
	return mesh, nil
}

func objVertex(model *obj.Model, ref obj.Reference, flat lin.Vec3) metadata.Vertex {
	p := model.GetVertexFromReference(ref)
	v := metadata.Vertex{
		Position: lin.Vec3{float32(p.X), float32(p.Y), float32(p.Z)},
		Normal:   flat,
		Colour:   defaultModelColour,
	}
	if ref.HasNormal() {
		n := model.GetNormalFromReference(ref)
		v.Normal = lin.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
	}
	if ref.HasTexCoord() {
		t := model.GetTexCoordFromReference(ref)
		// OBJ puts v=0 at the bottom of the image.
		v.Texcoord = lin.Vec2{float32(t.U), float32(1 - t.V)}
	}
	return v
}

func faceNormal(model *obj.Model, refs []obj.Reference) lin.Vec3 {
	a := model.GetVertexFromReference(refs[0])
	b := model.GetVertexFromReference(refs[1])
	c := model.GetVertexFromReference(refs[2])
	ab := lin.Vec3{float32(b.X - a.X), float32(b.Y - a.Y), float32(b.Z - a.Z)}
	ac := lin.Vec3{float32(c.X - a.X), float32(c.Y - a.Y), float32(c.Z - a.Z)}
	var n lin.Vec3
	n.MultCross(&ab, &ac)
	if l := n.Len(); l > 0 {
		n.Scale(&n, 1/l)
	}
	return n
}
