package vulkan

import "unsafe"

// sliceBytes views a slice of plain values as raw bytes without copying.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// structBytes views a single value as raw bytes without copying.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

// spirvWords reinterprets SPIR-V bytecode as the uint32 words the driver expects.
// len(code) must be a multiple of 4.
func spirvWords(code []byte) []uint32 {
	if len(code) < 4 {
		return nil
	}
	words := make([]uint32, len(code)/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4), code)
	return words
}
