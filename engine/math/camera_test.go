package math

import (
	gomath "math"
	"testing"

	lin "github.com/xlab/linmath"
)

func transformPoint(m *lin.Mat4x4, p lin.Vec3) lin.Vec4 {
	in := lin.Vec4{p[0], p[1], p[2], 1}
	var out lin.Vec4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[row] += m[col][row] * in[col]
		}
	}
	return out
}

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatal("int clamp")
	}
	if Clamp(uint32(9000), 1, 4096) != 4096 {
		t.Fatal("uint32 clamp")
	}
}

func TestProjectionFlipsY(t *testing.T) {
	c := NewCamera(lin.Vec3{0, 0, 5})
	p := c.Projection(16.0 / 9.0)
	if p[1][1] >= 0 {
		t.Fatalf("expected negative Y scale, got %f", p[1][1])
	}
}

func TestProjectionDepthRange(t *testing.T) {
	c := NewCamera(lin.Vec3{0, 0, 5})
	p := c.Projection(1)
	v := c.View()
	var vp lin.Mat4x4
	vp.Mult(&p, &v)

	nearPt := transformPoint(&vp, lin.Vec3{0, 0, 5 - c.Near})
	farPt := transformPoint(&vp, lin.Vec3{0, 0, 5 - c.Far})
	if z := nearPt[2] / nearPt[3]; !near(z, 0) {
		t.Fatalf("near plane depth = %f, want 0", z)
	}
	if z := farPt[2] / farPt[3]; !near(z, 1) {
		t.Fatalf("far plane depth = %f, want 1", z)
	}
}

func TestCameraLooksAtOrigin(t *testing.T) {
	c := NewCamera(lin.Vec3{0, 0, 5})
	f := c.Forward()
	if !near(f[0], 0) || !near(f[1], 0) || !near(f[2], -1) {
		t.Fatalf("forward = %v, want (0,0,-1)", f)
	}
	v := c.View()
	o := transformPoint(&v, lin.Vec3{0, 0, 0})
	if !near(o[0], 0) || !near(o[1], 0) || !near(o[2], -5) {
		t.Fatalf("origin in view space = %v", o)
	}
}

func TestCameraMove(t *testing.T) {
	c := NewCamera(lin.Vec3{0, 0, 5})
	c.Move(1, 0, 0)
	if p := c.Position(); !near(p[2], 4) {
		t.Fatalf("moved forward to %v", p)
	}
	c.Move(0, 1, 0)
	if p := c.Position(); !near(p[0], 1) {
		t.Fatalf("strafed right to %v", p)
	}
	c.Move(0, 0, 2)
	if p := c.Position(); !near(p[1], 2) {
		t.Fatalf("moved up to %v", p)
	}
}

func TestLightSpaceCentersTarget(t *testing.T) {
	m := LightSpace(lin.Vec3{4, 8, 4}, lin.Vec3{0, 0, 0}, 10, 1, 30)
	p := transformPoint(&m, lin.Vec3{0, 0, 0})
	if !near(p[0], 0) || !near(p[1], 0) {
		t.Fatalf("target not centered: %v", p)
	}
	if p[2] < 0 || p[2] > 1 {
		t.Fatalf("target depth %f outside [0,1]", p[2])
	}
}

func TestLightSpaceStraightDown(t *testing.T) {
	m := LightSpace(lin.Vec3{0, 10, 0}, lin.Vec3{0, 0, 0}, 10, 1, 30)
	p := transformPoint(&m, lin.Vec3{0, 0, 0})
	if gomath.IsNaN(float64(p[0])) || !near(p[0], 0) || !near(p[1], 0) {
		t.Fatalf("degenerate up vector: %v", p)
	}
}

func TestTransformTranslates(t *testing.T) {
	m := Transform(lin.Vec3{1, 2, 3}, 2, 0)
	p := transformPoint(&m, lin.Vec3{1, 0, 0})
	if !near(p[0], 3) || !near(p[1], 2) || !near(p[2], 3) {
		t.Fatalf("transformed = %v", p)
	}
}
