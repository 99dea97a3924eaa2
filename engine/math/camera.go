package math

import (
	gomath "math"

	lin "github.com/xlab/linmath"
)

/**
 * @brief Column-major correction from GL clip space to Vulkan clip space:
 * flips Y and remaps depth from [-1,1] to [0,1].
 */
var vulkanClip = lin.Mat4x4{
	{1, 0, 0, 0},
	{0, -1, 0, 0},
	{0, 0, 0.5, 0},
	{0, 0, 0.5, 1},
}

/**
 * @brief A free-fly camera. Position and rotation setters mark the view dirty
 * so it is rebuilt lazily on the next View call.
 */
type Camera struct {
	position lin.Vec3
	// Pitch and yaw in radians.
	pitch, yaw float32

	FovDegrees float32
	Near, Far  float32

	isDirty bool
	view    lin.Mat4x4
}

func NewCamera(position lin.Vec3) *Camera {
	c := &Camera{
		position:   position,
		FovDegrees: 45,
		Near:       0.1,
		Far:        100,
		isDirty:    true,
	}
	// Face the origin.
	c.LookAtOrigin()
	return c
}

func (c *Camera) Position() lin.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(p lin.Vec3) {
	c.position = p
	c.isDirty = true
}

// LookAtOrigin points the camera at (0,0,0) from its current position.
func (c *Camera) LookAtOrigin() {
	var dir lin.Vec3
	dir.Scale(&c.position, -1)
	l := dir.Len()
	if l == 0 {
		return
	}
	c.yaw = float32(gomath.Atan2(float64(dir[0]), float64(-dir[2])))
	c.pitch = float32(gomath.Asin(float64(dir[1] / l)))
	c.isDirty = true
}

func (c *Camera) Rotate(deltaPitch, deltaYaw float32) {
	c.pitch = Clamp(c.pitch+deltaPitch, -1.5, 1.5)
	c.yaw += deltaYaw
	c.isDirty = true
}

// Forward returns the unit view direction.
func (c *Camera) Forward() lin.Vec3 {
	cp := float32(gomath.Cos(float64(c.pitch)))
	return lin.Vec3{
		cp * float32(gomath.Sin(float64(c.yaw))),
		float32(gomath.Sin(float64(c.pitch))),
		-cp * float32(gomath.Cos(float64(c.yaw))),
	}
}

// Move translates the camera relative to its orientation.
func (c *Camera) Move(forward, right, up float32) {
	f := c.Forward()
	worldUp := lin.Vec3{0, 1, 0}
	var r lin.Vec3
	r.MultCross(&f, &worldUp)
	r.Norm(&r)

	for i := 0; i < 3; i++ {
		c.position[i] += f[i]*forward + r[i]*right + worldUp[i]*up
	}
	c.isDirty = true
}

func (c *Camera) View() lin.Mat4x4 {
	if c.isDirty {
		f := c.Forward()
		var center lin.Vec3
		center.Add(&c.position, &f)
		c.view.LookAt(&c.position, &center, &lin.Vec3{0, 1, 0})
		c.isDirty = false
	}
	return c.view
}

// Projection returns a perspective projection in Vulkan clip space.
func (c *Camera) Projection(aspect float32) lin.Mat4x4 {
	var p lin.Mat4x4
	p.Perspective(lin.DegreesToRadians(c.FovDegrees), aspect, c.Near, c.Far)
	return ToVulkanClip(&p)
}

// ToVulkanClip converts a GL-style projection to Vulkan conventions.
func ToVulkanClip(proj *lin.Mat4x4) lin.Mat4x4 {
	var out lin.Mat4x4
	out.Mult(&vulkanClip, proj)
	return out
}

/**
 * @brief Builds the light-space matrix used by the shadow pass: an orthographic
 * box of half-size `extent` looking from `light` at `target`.
 */
func LightSpace(light, target lin.Vec3, extent, near, far float32) lin.Mat4x4 {
	var view, ortho, out lin.Mat4x4
	up := lin.Vec3{0, 1, 0}
	// LookAt degenerates when the light is straight above the target.
	if light[0] == target[0] && light[2] == target[2] {
		up = lin.Vec3{0, 0, 1}
	}
	view.LookAt(&light, &target, &up)
	ortho.Ortho(-extent, extent, -extent, extent, near, far)
	proj := ToVulkanClip(&ortho)
	out.Mult(&proj, &view)
	return out
}

// Transform returns a model matrix for a translation, uniform scale and Y rotation.
func Transform(translation lin.Vec3, scale, yawRadians float32) lin.Mat4x4 {
	var t, r, s, tr, out lin.Mat4x4
	t.Translate(translation[0], translation[1], translation[2])
	var id lin.Mat4x4
	id.Identity()
	r.Rotate(&id, 0, 1, 0, yawRadians)
	s.Identity()
	s.ScaleAniso(&s, scale, scale, scale)
	tr.Mult(&t, &r)
	out.Mult(&tr, &s)
	return out
}
