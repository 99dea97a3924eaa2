package engine

import (
	gomath "math"
	"testing"

	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestMeshForShape(t *testing.T) {
	for i, kind := range []ShapeKind{ShapeCube, ShapePlane, ShapeSphere} {
		mesh, err := meshForShape(ShapeConfig{Kind: kind, Size: 1}, i)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if len(mesh.Vertices) == 0 || len(mesh.Indices)%3 != 0 {
			t.Errorf("%s: %d vertices, %d indices", kind, len(mesh.Vertices), len(mesh.Indices))
		}
		if mesh.Vertices[0].Colour != (lin.Vec3{1, 1, 1}) {
			t.Errorf("%s: unset colour = %v, want white", kind, mesh.Vertices[0].Colour)
		}
	}

	mesh, err := meshForShape(ShapeConfig{Kind: ShapeCube, Size: 1, Colour: [3]float32{1, 0, 0}}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.Name != "cube_7" || mesh.Vertices[0].Colour != (lin.Vec3{1, 0, 0}) {
		t.Errorf("name %q, colour %v", mesh.Name, mesh.Vertices[0].Colour)
	}

	if _, err := meshForShape(ShapeConfig{Kind: "torus", Size: 1}, 0); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestSceneObjectAdvance(t *testing.T) {
	var model lin.Mat4x4
	o := &sceneObject{translation: lin.Vec3{1, 0, 0}, scale: 1, yaw: 350, spin: 20, model: &model}

	o.advance(1)
	if gomath.Abs(float64(o.yaw-10)) > 1e-4 {
		t.Fatalf("yaw = %v, want 10 after wrapping", o.yaw)
	}
	if model != o.matrix() {
		t.Error("model matrix not refreshed")
	}

	o.spin = -30
	o.advance(1)
	if gomath.Abs(float64(o.yaw-340)) > 1e-4 {
		t.Fatalf("yaw = %v, want 340 after wrapping below zero", o.yaw)
	}

	still := &sceneObject{scale: 1, yaw: 45, model: &model}
	before := model
	still.advance(1)
	if still.yaw != 45 || model != before {
		t.Error("an object without spin moved")
	}
}

func TestSceneUniforms(t *testing.T) {
	camera := math.NewCamera(lin.Vec3{0, 2, 5})
	s := &sceneUniforms{camera: camera, light: lin.Vec3{3, 6, 3}, debug: true}
	p := s.Uniforms(metadata.Extent{Width: 1600, Height: 900})

	var id lin.Mat4x4
	id.Identity()
	if p.Model != id {
		t.Error("model is not identity")
	}
	if p.Debug != 1 {
		t.Errorf("debug = %d", p.Debug)
	}
	if p.CameraPosition != (lin.Vec4{0, 2, 5, 1}) || p.LightPosition != (lin.Vec4{3, 6, 3, 1}) {
		t.Errorf("positions = %v, %v", p.CameraPosition, p.LightPosition)
	}
	if p.View != camera.View() {
		t.Error("view does not come from the camera")
	}
	if p.Projection != camera.Projection(16.0/9.0) {
		t.Error("projection ignores the extent aspect")
	}
}

func TestAxis(t *testing.T) {
	tests := []struct {
		pos, neg bool
		want     float32
	}{
		{false, false, 0},
		{true, false, 1},
		{false, true, -1},
		{true, true, 0},
	}
	for _, tt := range tests {
		if got := axis(tt.pos, tt.neg); got != tt.want {
			t.Errorf("axis(%v, %v) = %v, want %v", tt.pos, tt.neg, got, tt.want)
		}
	}
}

func TestCameraInputApply(t *testing.T) {
	camera := math.NewCamera(lin.Vec3{0, 0, 5})
	cameraInput{}.apply(camera, 1)
	if camera.Position() != (lin.Vec3{0, 0, 5}) {
		t.Fatalf("idle input moved the camera to %v", camera.Position())
	}

	cameraInput{forward: 1}.apply(camera, 0.5)
	if pos := camera.Position(); pos[2] >= 5 {
		t.Errorf("moving forward towards the origin left z at %v", pos[2])
	}
	cameraInput{up: 1}.apply(camera, 0.25)
	if pos := camera.Position(); gomath.Abs(float64(pos[1]-1)) > 1e-4 {
		t.Errorf("y = %v, want 1 after moving up for 0.25s", pos[1])
	}
}
