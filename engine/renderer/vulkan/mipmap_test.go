package vulkan

import "testing"

func TestMipLevels(t *testing.T) {
	tests := []struct {
		w, h, want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{256, 256, 9},
		{1024, 512, 11},
		{512, 1024, 11},
		{4096, 1, 13},
		{640, 480, 10},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := MipLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestMipExtentsHalve(t *testing.T) {
	for _, size := range [][2]uint32{{256, 256}, {1024, 64}, {8, 512}, {1, 1}} {
		levels := MipLevels(size[0], size[1])
		ext := MipExtents(size[0], size[1], levels)
		if uint32(len(ext)) != levels {
			t.Fatalf("%v: %d extents for %d levels", size, len(ext), levels)
		}
		if ext[0] != size {
			t.Fatalf("%v: base level %v", size, ext[0])
		}
		for i := 1; i < len(ext); i++ {
			for axis := 0; axis < 2; axis++ {
				want := ext[i-1][axis] / 2
				if want < 1 {
					want = 1
				}
				if ext[i][axis] != want {
					t.Fatalf("%v: level %d axis %d = %d, want %d", size, i, axis, ext[i][axis], want)
				}
			}
		}
		if last := ext[len(ext)-1]; last != [2]uint32{1, 1} {
			t.Fatalf("%v: chain stops at %v", size, last)
		}
	}
}

func TestMipExtentsLongestEdgeReachesOne(t *testing.T) {
	ext := MipExtents(1024, 64, MipLevels(1024, 64))
	last := ext[len(ext)-1]
	if last != [2]uint32{1, 1} {
		t.Fatalf("last level = %v, want 1x1", last)
	}
}
