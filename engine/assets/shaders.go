package assets

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// Compiled module names, relative to the shader directory.
const (
	ShadowVertexFile   = "shadow.vert.spv"
	SceneVertexFile    = "scene.vert.spv"
	SceneFragmentFile  = "scene.frag.spv"
	ParticleVertexFile = "particles.vert.spv"
	ParticleFragFile   = "particles.frag.spv"
	ParticleCompFile   = "particles.comp.spv"
)

type shaderTarget struct {
	file string
	dst  *[]byte
}

// LoadShaderSet reads every compiled module from shaderDir, relative to the asset root.
// The particle modules are only required when withParticles is set.
func (am *AssetManager) LoadShaderSet(shaderDir string, withParticles bool) (metadata.ShaderSet, error) {
	var set metadata.ShaderSet
	targets := []shaderTarget{
		{ShadowVertexFile, &set.ShadowVertex},
		{SceneVertexFile, &set.SceneVertex},
		{SceneFragmentFile, &set.SceneFragment},
	}
	if withParticles {
		targets = append(targets,
			shaderTarget{ParticleVertexFile, &set.ParticleVertex},
			shaderTarget{ParticleFragFile, &set.ParticleFrag},
			shaderTarget{ParticleCompFile, &set.ParticleComp},
		)
	}

	for _, target := range targets {
		res, err := am.LoadAsset(filepath.Join(shaderDir, target.file), nil)
		if err != nil {
			return metadata.ShaderSet{}, fmt.Errorf("shader %s: %w", target.file, err)
		}
		*target.dst = res.Data.([]byte)
	}
	return set, nil
}
