package core

import "testing"

func TestInputEdgeDetection(t *testing.T) {
	if err := InputInitialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = InputShutdown() })

	InputProcessKey(KEY_F1, true)
	if !InputKeyPressedThisFrame(KEY_F1) {
		t.Fatal("F1 should register as pressed this frame")
	}
	InputUpdate()
	if InputKeyPressedThisFrame(KEY_F1) {
		t.Fatal("held F1 should not register as a new press")
	}
	if !InputIsKeyDown(KEY_F1) || !InputWasKeyDown(KEY_F1) {
		t.Fatal("F1 should be down in both states")
	}
	InputProcessKey(KEY_F1, false)
	InputUpdate()
	if InputIsKeyDown(KEY_F1) {
		t.Fatal("F1 should be released")
	}
}
