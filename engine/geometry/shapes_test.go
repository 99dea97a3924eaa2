package geometry

import (
	gomath "math"
	"testing"

	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func checkIndices(t *testing.T, m *metadata.Mesh) {
	t.Helper()
	if len(m.Indices)%3 != 0 {
		t.Fatalf("%s: %d indices is not a triangle list", m.Name, len(m.Indices))
	}
	for _, i := range m.Indices {
		if int(i) >= len(m.Vertices) {
			t.Fatalf("%s: index %d out of range (%d vertices)", m.Name, i, len(m.Vertices))
		}
	}
}

// checkOutwardWinding verifies every triangle is counter-clockwise when seen
// from the side its vertex normals point to.
func checkOutwardWinding(t *testing.T, m *metadata.Mesh) {
	t.Helper()
	for k := 0; k < len(m.Indices); k += 3 {
		a := m.Vertices[m.Indices[k]]
		b := m.Vertices[m.Indices[k+1]]
		c := m.Vertices[m.Indices[k+2]]
		var e1, e2, n lin.Vec3
		e1.Sub(&b.Position, &a.Position)
		e2.Sub(&c.Position, &a.Position)
		n.MultCross(&e1, &e2)
		if n.Len() < 1e-7 {
			t.Fatalf("%s: degenerate triangle %d", m.Name, k/3)
		}
		var avg lin.Vec3
		avg.Add(&a.Normal, &b.Normal)
		avg.Add(&avg, &c.Normal)
		if lin.Vec3MultInner(&n, &avg) <= 0 {
			t.Fatalf("%s: triangle %d faces inward", m.Name, k/3)
		}
	}
}

func TestCube(t *testing.T) {
	m := Cube(2, White)
	if len(m.Vertices) != 24 || len(m.Indices) != 36 {
		t.Fatalf("cube has %d vertices and %d indices", len(m.Vertices), len(m.Indices))
	}
	checkIndices(t, m)
	checkOutwardWinding(t, m)
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			if gomath.Abs(float64(v.Position[i])) != 1 {
				t.Fatalf("vertex %v not on the unit cube corners", v.Position)
			}
		}
	}
}

func TestPlane(t *testing.T) {
	m := Plane(10, White)
	if len(m.Vertices) != 4 || len(m.Indices) != 6 {
		t.Fatalf("plane has %d vertices and %d indices", len(m.Vertices), len(m.Indices))
	}
	checkIndices(t, m)
	checkOutwardWinding(t, m)
	for _, v := range m.Vertices {
		if v.Position[1] != 0 || v.Normal != (lin.Vec3{0, 1, 0}) {
			t.Fatalf("plane vertex %+v", v)
		}
	}
}

func TestSphere(t *testing.T) {
	for _, tc := range []struct{ slices, stacks uint32 }{{3, 2}, {16, 8}, {32, 24}} {
		m, err := Sphere(1.5, tc.slices, tc.stacks, White)
		if err != nil {
			t.Fatal(err)
		}
		if want := int((tc.slices + 1) * (tc.stacks + 1)); len(m.Vertices) != want {
			t.Errorf("%dx%d: %d vertices, want %d", tc.slices, tc.stacks, len(m.Vertices), want)
		}
		if want := int(tc.slices * (2*tc.stacks - 2) * 3); len(m.Indices) != want {
			t.Errorf("%dx%d: %d indices, want %d", tc.slices, tc.stacks, len(m.Indices), want)
		}
		checkIndices(t, m)
		checkOutwardWinding(t, m)
		for _, v := range m.Vertices {
			if r := v.Position.Len(); gomath.Abs(float64(r-1.5)) > 1e-4 {
				t.Fatalf("vertex at radius %f", r)
			}
		}
	}
}

func TestSphereRejectsDegenerate(t *testing.T) {
	if _, err := Sphere(1, 2, 8, White); err == nil {
		t.Fatal("expected error for 2 slices")
	}
	if _, err := Sphere(1, 8, 1, White); err == nil {
		t.Fatal("expected error for 1 stack")
	}
}

func TestAppendRebasesIndices(t *testing.T) {
	m := Plane(1, White)
	m.Append(Cube(1, White))
	if len(m.Vertices) != 28 || len(m.Indices) != 42 {
		t.Fatalf("merged mesh has %d vertices and %d indices", len(m.Vertices), len(m.Indices))
	}
	checkIndices(t, m)
	if m.Indices[6] != 4 {
		t.Fatalf("first cube index = %d, want 4", m.Indices[6])
	}
}
