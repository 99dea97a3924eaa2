package geometry

import (
	"fmt"
	gomath "math"

	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// White is the default vertex colour; the scene shader multiplies it with the texture.
var White = lin.Vec3{1, 1, 1}

type face struct {
	normal, u, v lin.Vec3
}

// u x v == normal, so corners walked (-u,-v) (u,-v) (u,v) (-u,v) are counter-clockwise from outside.
var cubeFaces = [6]face{
	{lin.Vec3{1, 0, 0}, lin.Vec3{0, 0, -1}, lin.Vec3{0, 1, 0}},
	{lin.Vec3{-1, 0, 0}, lin.Vec3{0, 0, 1}, lin.Vec3{0, 1, 0}},
	{lin.Vec3{0, 1, 0}, lin.Vec3{1, 0, 0}, lin.Vec3{0, 0, -1}},
	{lin.Vec3{0, -1, 0}, lin.Vec3{1, 0, 0}, lin.Vec3{0, 0, 1}},
	{lin.Vec3{0, 0, 1}, lin.Vec3{1, 0, 0}, lin.Vec3{0, 1, 0}},
	{lin.Vec3{0, 0, -1}, lin.Vec3{-1, 0, 0}, lin.Vec3{0, 1, 0}},
}

var quadCorners = [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

func appendQuad(m *metadata.Mesh, f face, center lin.Vec3, half float32, colour lin.Vec3) {
	base := uint32(len(m.Vertices))
	for _, c := range quadCorners {
		var p lin.Vec3
		for i := 0; i < 3; i++ {
			p[i] = center[i] + (f.u[i]*c[0]+f.v[i]*c[1])*half
		}
		m.Vertices = append(m.Vertices, metadata.Vertex{
			Position: p,
			Normal:   f.normal,
			Colour:   colour,
			Texcoord: lin.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
}

// Cube returns an axis-aligned cube of edge length size centred on the origin.
func Cube(size float32, colour lin.Vec3) *metadata.Mesh {
	m := &metadata.Mesh{
		Name:     "cube",
		Vertices: make([]metadata.Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	half := size / 2
	for _, f := range cubeFaces {
		var center lin.Vec3
		center.Scale(&f.normal, half)
		appendQuad(m, f, center, half, colour)
	}
	return m
}

// Plane returns a square in the XZ plane facing +Y.
func Plane(size float32, colour lin.Vec3) *metadata.Mesh {
	m := &metadata.Mesh{Name: "plane"}
	appendQuad(m, cubeFaces[2], lin.Vec3{}, size/2, colour)
	return m
}

/**
 * @brief Returns a UV sphere. Stacks run from the north pole to the south pole,
 * slices around the Y axis. Degenerate triangles at the poles are skipped.
 */
func Sphere(radius float32, slices, stacks uint32, colour lin.Vec3) (*metadata.Mesh, error) {
	if slices < 3 || stacks < 2 {
		return nil, fmt.Errorf("sphere needs at least 3 slices and 2 stacks, got %d and %d", slices, stacks)
	}
	m := &metadata.Mesh{
		Name:     "sphere",
		Vertices: make([]metadata.Vertex, 0, (stacks+1)*(slices+1)),
		Indices:  make([]uint32, 0, slices*(2*stacks-2)*3),
	}
	for i := uint32(0); i <= stacks; i++ {
		phi := gomath.Pi * float64(i) / float64(stacks)
		for j := uint32(0); j <= slices; j++ {
			theta := 2 * gomath.Pi * float64(j) / float64(slices)
			n := lin.Vec3{
				float32(gomath.Sin(phi) * gomath.Cos(theta)),
				float32(gomath.Cos(phi)),
				float32(gomath.Sin(phi) * gomath.Sin(theta)),
			}
			var p lin.Vec3
			p.Scale(&n, radius)
			m.Vertices = append(m.Vertices, metadata.Vertex{
				Position: p,
				Normal:   n,
				Colour:   colour,
				Texcoord: lin.Vec2{float32(j) / float32(slices), float32(i) / float32(stacks)},
			})
		}
	}

	row := slices + 1
	for i := uint32(0); i < stacks; i++ {
		for j := uint32(0); j < slices; j++ {
			a := i*row + j
			b := a + row
			c := b + 1
			d := a + 1
			if i != stacks-1 {
				m.Indices = append(m.Indices, a, c, b)
			}
			if i != 0 {
				m.Indices = append(m.Indices, a, d, c)
			}
		}
	}
	return m, nil
}
