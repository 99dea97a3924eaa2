package metadata

import lin "github.com/xlab/linmath"

// Particle is the std430 element of the compute particle storage buffer.
type Particle struct {
	Position lin.Vec2
	Velocity lin.Vec2
	Colour   lin.Vec4
}
