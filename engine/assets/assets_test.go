package assets

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func spirvModule() []byte {
	data := make([]byte, 20)
	binary.LittleEndian.PutUint32(data, 0x07230203)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func shaderTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{ShadowVertexFile, SceneVertexFile, SceneFragmentFile} {
		writeFile(t, filepath.Join(root, "shaders", name), spirvModule())
	}
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("ignored"))
	return root
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]metadata.ResourceType{
		"a/scene.vert.spv": metadata.ResourceTypeShader,
		"crate.png":        metadata.ResourceTypeImage,
		"crate.JPG":        metadata.ResourceTypeNone,
		"bunny.obj":        metadata.ResourceTypeModel,
		"readme.md":        metadata.ResourceTypeNone,
	}
	for path, want := range tests {
		if got := determineAssetType(path); got != want {
			t.Errorf("determineAssetType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestNewAssetManagerRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, nil)
	if _, err := NewAssetManager(file); err == nil {
		t.Error("a regular file was accepted as asset root")
	}
	if _, err := NewAssetManager(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("a missing directory was accepted as asset root")
	}
}

func TestIndexAndLoad(t *testing.T) {
	am, err := NewAssetManager(shaderTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(false); err != nil {
		t.Fatal(err)
	}
	defer am.Close()

	if am.Count() != 3 {
		t.Fatalf("indexed %d assets, want 3", am.Count())
	}
	info, ok := am.Lookup(filepath.Join("shaders", SceneVertexFile))
	if !ok || info.Type != metadata.ResourceTypeShader {
		t.Fatalf("lookup = %+v, %v", info, ok)
	}

	res, err := am.LoadAsset(filepath.Join("shaders", SceneVertexFile), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "scene" || res.DataSize != 20 {
		t.Errorf("resource = %s, %d bytes", res.Name, res.DataSize)
	}
	if err := am.UnloadAsset(res); err != nil {
		t.Error(err)
	}
	if _, err := am.LoadAsset("notes.txt", nil); err == nil {
		t.Error("unindexed file loaded")
	}
}

func TestLoadShaderSet(t *testing.T) {
	am, err := NewAssetManager(shaderTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(false); err != nil {
		t.Fatal(err)
	}
	defer am.Close()

	set, err := am.LoadShaderSet("shaders", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.ShadowVertex) == 0 || len(set.SceneVertex) == 0 || len(set.SceneFragment) == 0 {
		t.Errorf("scene modules missing: %+v", set)
	}
	if set.ParticleComp != nil {
		t.Error("particle modules loaded without being requested")
	}
	if _, err := am.LoadShaderSet("shaders", true); err == nil {
		t.Error("missing particle modules were not reported")
	}
}

func TestWatcherFiresShadersChanged(t *testing.T) {
	if !core.EventSystemInitialize() {
		t.Fatal("event system already running")
	}
	t.Cleanup(func() { _ = core.EventShutdown() })

	changed := make(chan struct{}, 4)
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, t, func(code core.SystemEventCode, sender, inst interface{}, data core.EventContext) bool {
		changed <- struct{}{}
		return true
	})

	root := shaderTree(t)
	am, err := NewAssetManager(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(true); err != nil {
		t.Fatal(err)
	}
	defer am.Close()

	// Two quick writes are folded into one notification.
	path := filepath.Join(root, "shaders", SceneFragmentFile)
	writeFile(t, path, spirvModule())
	writeFile(t, path, spirvModule())

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no shader change event after writing a module")
	}
	select {
	case <-changed:
		t.Error("debounced writes produced a second event")
	case <-time.After(3 * shaderChangeDebounce):
	}

	// New files in new directories are indexed too.
	writeFile(t, filepath.Join(root, "textures", "crate.png"), []byte{0})
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := am.Lookup(filepath.Join("textures", "crate.png")); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("file in new directory was not indexed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	am, err := NewAssetManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(true); err != nil {
		t.Fatal(err)
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	if _, err := NewJobSystem(0, 1); err != ErrNoWorkers {
		t.Errorf("zero workers: %v", err)
	}
	if _, err := NewJobSystem(1, -1); err != ErrNegativeChannelSize {
		t.Errorf("negative queue: %v", err)
	}

	js, err := NewJobSystem(4, 0)
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	completed, failed := 0, 0
	for i := 0; i < 20; i++ {
		js.Submit(JobTask{
			Run: func() error {
				if i%5 == 0 {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete: func() { mu.Lock(); completed++; mu.Unlock() },
			OnFailure:  func(error) { mu.Lock(); failed++; mu.Unlock() },
		})
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if completed != 16 || failed != 4 {
		t.Errorf("completed %d, failed %d", completed, failed)
	}
}

func TestLoadBatch(t *testing.T) {
	root := shaderTree(t)
	am, err := NewAssetManager(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(false); err != nil {
		t.Fatal(err)
	}
	defer am.Close()

	requests := []LoadRequest{
		{Path: filepath.Join("shaders", SceneFragmentFile)},
		{Path: filepath.Join("shaders", ShadowVertexFile)},
	}
	res, err := am.LoadBatch(8, requests)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].Name != "scene" || res[1].Name != "shadow" {
		t.Fatalf("results out of order: %v", res)
	}

	requests = append(requests, LoadRequest{Path: "missing.obj"})
	if _, err := am.LoadBatch(2, requests); err == nil || !strings.Contains(err.Error(), "missing.obj") {
		t.Errorf("err = %v, want it to name the missing asset", err)
	}
}
