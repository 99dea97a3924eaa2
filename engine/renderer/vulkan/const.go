package vulkan

import "math"

const (
	// Frame slots used when the configuration does not say otherwise.
	DefaultFramesInFlight uint32 = 2
	// Upper bound on frame slots.
	MaxFramesInFlight uint32 = 3

	// The presentation engine decides how long acquisition may take.
	acquireTimeoutNs uint64 = math.MaxUint64

	// Particles start from the same layout on every run.
	particleSeed uint64 = 1
)
