package core

import (
	"errors"
)

var (
	// The surface changed and the swapchain can no longer be used. Recoverable.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	// The swapchain still works but no longer matches the surface. Recoverable.
	ErrSwapchainSuboptimal = errors.New("swapchain suboptimal")

	ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")
	ErrLinearBlitUnsupported       = errors.New("texture image format does not support linear blitting")
	ErrNoSuitableMemoryType        = errors.New("failed to find suitable memory type")
	ErrNoSuitableDevice            = errors.New("failed to find a suitable physical device")
	ErrEmptyUpload                 = errors.New("upload data is empty")
	ErrUnknown                     = errors.New("unknown")
)

// IsSurfaceChange reports whether err is one of the recoverable swapchain conditions.
func IsSurfaceChange(err error) bool {
	return errors.Is(err, ErrSwapchainOutOfDate) || errors.Is(err, ErrSwapchainSuboptimal)
}
