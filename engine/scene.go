package engine

import (
	"fmt"

	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/geometry"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

const (
	sphereSlices = 32
	sphereStacks = 16

	// Half-size and depth range of the orthographic shadow volume.
	lightExtent = 10
	lightNear   = 0.1
	lightFar    = 30

	cameraSpeed = 4.0
)

func vec3(v [3]float32) lin.Vec3 {
	return lin.Vec3{v[0], v[1], v[2]}
}

// meshForShape generates the geometry for a configured shape.
func meshForShape(s ShapeConfig, index int) (*metadata.Mesh, error) {
	colour := vec3(s.Colour)
	if colour == (lin.Vec3{}) {
		colour = lin.Vec3{1, 1, 1}
	}

	var mesh *metadata.Mesh
	switch s.Kind {
	case ShapeCube:
		mesh = geometry.Cube(s.Size, colour)
	case ShapePlane:
		mesh = geometry.Plane(s.Size, colour)
	case ShapeSphere:
		var err error
		if mesh, err = geometry.Sphere(s.Size, sphereSlices, sphereStacks, colour); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown shape kind %q", s.Kind)
	}
	mesh.Name = fmt.Sprintf("%s_%d", s.Kind, index)
	return mesh, nil
}

// sceneObject is a placed drawable. Spinning objects get a new model matrix every frame.
type sceneObject struct {
	translation lin.Vec3
	scale       float32
	// Degrees, and degrees per second.
	yaw, spin float32

	model *lin.Mat4x4
}

func (o *sceneObject) matrix() lin.Mat4x4 {
	return math.Transform(o.translation, o.scale, lin.DegreesToRadians(o.yaw))
}

// advance rotates the object by its spin over dt seconds and refreshes its model matrix.
func (o *sceneObject) advance(dt float32) {
	if o.spin == 0 {
		return
	}
	o.yaw += o.spin * dt
	for o.yaw >= 360 {
		o.yaw -= 360
	}
	for o.yaw < 0 {
		o.yaw += 360
	}
	if o.model != nil {
		*o.model = o.matrix()
	}
}

/**
 * @brief Produces the per-frame uniform payload from the camera and a fixed
 * light. Model is identity; objects carry their own matrix.
 */
type sceneUniforms struct {
	camera *math.Camera
	light  lin.Vec3
	debug  bool
}

func (s *sceneUniforms) Uniforms(extent metadata.Extent) metadata.UniformPayload {
	var p metadata.UniformPayload
	p.Model.Identity()
	p.View = s.camera.View()
	p.Projection = s.camera.Projection(extent.Aspect())
	p.LightSpace = math.LightSpace(s.light, lin.Vec3{0, 0, 0}, lightExtent, lightNear, lightFar)
	pos := s.camera.Position()
	p.CameraPosition = lin.Vec4{pos[0], pos[1], pos[2], 1}
	p.LightPosition = lin.Vec4{s.light[0], s.light[1], s.light[2], 1}
	p.Debug = metadata.Bool32(s.debug)
	return p
}

// cameraInput is the movement requested by the keyboard this frame.
type cameraInput struct {
	forward, right, up float32
}

func (in cameraInput) apply(camera *math.Camera, dt float32) {
	if in == (cameraInput{}) {
		return
	}
	step := cameraSpeed * dt
	camera.Move(in.forward*step, in.right*step, in.up*step)
}

func axis(positive, negative bool) float32 {
	switch {
	case positive && !negative:
		return 1
	case negative && !positive:
		return -1
	}
	return 0
}
