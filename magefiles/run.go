//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine with the default configuration.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config/penumbra.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests, and the GPU tests when integration is set.
func (Run) Tests(integration bool) error {
	args := []string{"test", "./..."}
	if integration {
		args = []string{"test", "-tags", "integration", "./..."}
	}
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}
