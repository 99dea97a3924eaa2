package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
		ok   bool
	}{
		{glfw.KeyW, core.KEY_W, true},
		{glfw.KeyEscape, core.KEY_ESCAPE, true},
		{glfw.KeyF1, core.KEY_F1, true},
		{glfw.KeyZ, 0, false},
	}
	for _, tt := range tests {
		got, ok := translateKey(tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("translateKey(%v) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyTransition(t *testing.T) {
	if pressed, ok := keyTransition(glfw.Press); !pressed || !ok {
		t.Errorf("Press = %v, %v", pressed, ok)
	}
	if pressed, ok := keyTransition(glfw.Release); pressed || !ok {
		t.Errorf("Release = %v, %v", pressed, ok)
	}
	if _, ok := keyTransition(glfw.Repeat); ok {
		t.Errorf("Repeat reported a transition")
	}
}

func TestResizeContext(t *testing.T) {
	ctx := resizeContext(1280, 720)
	if ctx.Data.U32[0] != 1280 || ctx.Data.U32[1] != 720 {
		t.Fatalf("resize context = %v", ctx.Data.U32)
	}
	ctx = resizeContext(-1, 0)
	if ctx.Data.U32[0] != 0 || ctx.Data.U32[1] != 0 {
		t.Fatalf("negative size leaked through: %v", ctx.Data.U32)
	}
}
