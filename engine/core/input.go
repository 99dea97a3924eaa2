package core

import "sync"

// Key code definitions. Values follow the virtual-key table the platform layer maps into.
type KeyCode uint16

const (
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_A      KeyCode = 0x41
	KEY_D      KeyCode = 0x44
	KEY_E      KeyCode = 0x45
	KEY_Q      KeyCode = 0x51
	KEY_R      KeyCode = 0x52
	KEY_S      KeyCode = 0x53
	KEY_W      KeyCode = 0x57
	KEY_F1     KeyCode = 0x70
	KEYS_MAX_KEYS
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input state structure that holds current and previous keyboard states
type InputState struct {
	mu               sync.Mutex
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

var inputMu sync.Mutex
var inputState *InputState = nil

func InputInitialize() error {
	inputMu.Lock()
	inputState = &InputState{}
	inputMu.Unlock()
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputMu.Lock()
	inputState = nil
	inputMu.Unlock()
	return nil
}

func currentInput() *InputState {
	inputMu.Lock()
	defer inputMu.Unlock()
	return inputState
}

// InputUpdate copies the current state into the previous state. Call once per frame.
func InputUpdate() {
	s := currentInput()
	if s == nil {
		return
	}
	s.mu.Lock()
	s.KeyboardPrevious = s.KeyboardCurrent
	s.mu.Unlock()
}

func InputIsKeyDown(key KeyCode) bool {
	s := currentInput()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.KeyboardCurrent.Keys[key]
}

func InputWasKeyDown(key KeyCode) bool {
	s := currentInput()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.KeyboardPrevious.Keys[key]
}

// InputKeyPressedThisFrame is true on the frame a key goes from up to down.
func InputKeyPressedThisFrame(key KeyCode) bool {
	return InputIsKeyDown(key) && !InputWasKeyDown(key)
}

func InputProcessKey(key KeyCode, pressed bool) {
	s := currentInput()
	if s == nil {
		return
	}
	s.mu.Lock()
	changed := s.KeyboardCurrent.Keys[key] != pressed
	s.KeyboardCurrent.Keys[key] = pressed
	s.mu.Unlock()

	// Only fire if the state actually changed.
	if !changed {
		return
	}
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	EventFire(code, nil, ctx)
}
