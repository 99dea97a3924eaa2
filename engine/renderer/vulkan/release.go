package vulkan

import (
	"sync"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type releaseEntry struct {
	name    string
	release func()
}

/**
 * @brief Resources register their release at creation time; Flush runs the
 * releases newest first, so teardown is the reverse of creation.
 */
type ReleaseStack struct {
	mu      sync.Mutex
	entries []releaseEntry
}

func (s *ReleaseStack) Push(name string, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, releaseEntry{name: name, release: release})
}

func (s *ReleaseStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *ReleaseStack) Flush() {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		core.LogDebug("Releasing %s...", entries[i].name)
		entries[i].release()
	}
}
