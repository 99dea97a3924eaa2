package loaders

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func twoRowImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for x := 0; x < 3; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
		img.Set(x, 1, color.NRGBA{B: 255, A: 255})
	}
	return img
}

func TestDecodeRGBA(t *testing.T) {
	data := encodePNG(t, twoRowImage())

	img, format, err := decodeRGBA(data, false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Fatalf("format = %q", format)
	}
	if len(img.Pix) != 3*2*4 {
		t.Fatalf("pixel bytes = %d, want tightly packed 24", len(img.Pix))
	}
	if img.Pix[0] != 255 || img.Pix[2] != 0 {
		t.Fatalf("first row is not red: %v", img.Pix[:4])
	}

	flipped, _, err := decodeRGBA(data, true)
	if err != nil {
		t.Fatalf("decode flipped: %v", err)
	}
	if flipped.Pix[0] != 0 || flipped.Pix[2] != 255 {
		t.Fatalf("first row after flip is not blue: %v", flipped.Pix[:4])
	}
}

func TestDecodeRGBARejectsGarbage(t *testing.T) {
	if _, _, err := decodeRGBA([]byte("not an image"), false); err == nil {
		t.Fatal("garbage decoded")
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, limit, wantW, wantH int
	}{
		{512, 256, 4096, 512, 256},
		{8192, 4096, 4096, 4096, 2048},
		{1000, 8000, 4000, 500, 4000},
		{10000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %d, %d; want %d, %d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestTextureLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.png")
	if err := os.WriteFile(path, encodePNG(t, twoRowImage()), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := (&TextureLoader{}).Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tex, ok := res.Data.(*metadata.TextureData)
	if !ok {
		t.Fatalf("data is %T", res.Data)
	}
	if tex.Width != 3 || tex.Height != 2 || res.Name != "checker" {
		t.Fatalf("texture %s %dx%d", res.Name, tex.Width, tex.Height)
	}
}

func spirvHeader(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "scene.frag.spv")
	os.WriteFile(good, spirvHeader(spirvMagic, 0x00010000, 0, 8, 0), 0o644)
	bad := filepath.Join(dir, "broken.vert.spv")
	os.WriteFile(bad, spirvHeader(0xdeadbeef, 0, 0, 0, 0), 0o644)
	short := filepath.Join(dir, "short.comp.spv")
	os.WriteFile(short, []byte{0x03, 0x02, 0x23}, 0o644)

	loader := &ShaderLoader{}
	res, err := loader.Load(good, nil)
	if err != nil {
		t.Fatalf("load good: %v", err)
	}
	if res.Name != "scene" || res.DataSize != 20 {
		t.Fatalf("resource %q with %d bytes", res.Name, res.DataSize)
	}
	for _, path := range []string{bad, short, filepath.Join(dir, "missing.spv")} {
		if _, err := loader.Load(path, nil); err == nil {
			t.Errorf("%s loaded", filepath.Base(path))
		}
	}
}

const quadOBJ = `o quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 1 0
usemtl default
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestDecodeOBJQuad(t *testing.T) {
	mesh, err := decodeOBJ(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mesh.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4 shared", len(mesh.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(want) {
		t.Fatalf("indices = %v", mesh.Indices)
	}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want fan %v", mesh.Indices, want)
		}
	}
	if mesh.Vertices[0].Normal[1] != 1 {
		t.Fatalf("normal = %v", mesh.Vertices[0].Normal)
	}
	// v is flipped into image space.
	if mesh.Vertices[0].Texcoord[1] != 1 || mesh.Vertices[2].Texcoord[1] != 0 {
		t.Fatalf("texcoords = %v, %v", mesh.Vertices[0].Texcoord, mesh.Vertices[2].Texcoord)
	}
}

const bareTriangleOBJ = `o tri
v 0 0 0
v 1 0 0
v 0 1 0
usemtl default
f 1 2 3
`

func TestDecodeOBJFlatNormal(t *testing.T) {
	mesh, err := decodeOBJ(strings.NewReader(bareTriangleOBJ))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mesh.IndexCount() != 3 {
		t.Fatalf("indices = %v", mesh.Indices)
	}
	for _, v := range mesh.Vertices {
		if v.Normal[2] != 1 {
			t.Fatalf("flat normal = %v, want +Z", v.Normal)
		}
	}
}

func TestDecodeOBJWithoutFaces(t *testing.T) {
	if _, err := decodeOBJ(strings.NewReader("o empty\nv 0 0 0\n")); err == nil {
		t.Fatal("model without faces decoded")
	}
}

func TestResourceName(t *testing.T) {
	for path, want := range map[string]string{
		"assets/shaders/scene.frag.spv": "scene",
		"viking_room.obj":               "viking_room",
		"noext":                         "noext",
	} {
		if got := resourceName(path); got != want {
			t.Errorf("resourceName(%q) = %q, want %q", path, got, want)
		}
	}
}
