package reader

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/progressive-pt/asset/texture"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
)

const testScenePayload = `
camera:
  fov: 60
  position: [0, 1, 5]
  look_at: [0, 1, 0]
environment:
  color: [0.5, 0.5, 0.5]
materials:
  - name: light
    preset: light
    emission: [4, 4, 4]
  - name: floor
    type: metallic-roughness
    albedo: [0.8, 0.8, 0.8]
    roughness: 0.4
    metalness: 0.1
  - name: lens
    preset: glass
    ior: 1.7
spheres:
  - center: [0, 10, 0]
    radius: 2
    material: light
  - center: [0, 1, 0]
    radius: 1
    material: lens
triangles:
  - vertices: [[-5, 0, -5], [5, 0, -5], [5, 0, 5]]
    uv: [[0, 0], [1, 0], [1, 1]]
    material: floor
`

func TestReadScene(t *testing.T) {
	sc, err := Read(context.Background(), mockResource(testScenePayload))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Materials) != 3 {
		t.Fatalf("expected 3 materials; got %d", len(sc.Materials))
	}
	if len(sc.Primitives) != 3 {
		t.Fatalf("expected 3 primitives; got %d", len(sc.Primitives))
	}

	cam := sc.Camera
	if cam == nil || cam.FOV != 60 || cam.Position != types.XYZ(0, 1, 5) || cam.LookAt != types.XYZ(0, 1, 0) {
		t.Fatalf("unexpected camera settings: %+v", cam)
	}

	light := sc.Materials[0]
	if light.Name != "light" || light.Emission != types.XYZ(4, 4, 4) {
		t.Fatalf("expected preset emission to be overridden; got %+v", light)
	}

	floor := sc.Materials[1]
	if floor.Type != scene.MetallicRoughnessMaterial || floor.Roughness != .4 || floor.Metalness != .1 {
		t.Fatalf("unexpected floor material: %+v", floor)
	}
	if floor.SpecularColor != floor.Albedo {
		t.Fatalf("expected metallic-roughness specular color to default to albedo; got %v", floor.SpecularColor)
	}

	lens := sc.Materials[2]
	if lens.Type != scene.RefractiveMaterial || lens.IOR != 1.7 {
		t.Fatalf("expected glass preset with overridden ior; got %+v", lens)
	}

	tri, ok := sc.Primitives[2].(*scene.Triangle)
	if !ok {
		t.Fatalf("expected third primitive to be a triangle; got %T", sc.Primitives[2])
	}
	if tri.UV[2] != types.XY(1, 1) || tri.Material != floor {
		t.Fatalf("unexpected triangle: %+v", tri)
	}

	env, ok := sc.Environment.(*texture.Texture)
	if !ok || env.Pixel(0, 0) != types.XYZ(.5, .5, .5) {
		t.Fatalf("expected constant environment color; got %v", sc.Environment)
	}
}

func TestReadSceneErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{"camera: [", "could not parse"},
		{"unknown_field: 1", "could not parse"},
		{"spheres: []", "scene does not define any primitives"},
		{"materials:\n  - preset: red", "material 0: missing material name"},
		{"materials:\n  - name: a\n  - name: a", "material 1: material 'a' already defined"},
		{"materials:\n  - name: a\n    preset: unobtanium", "unknown material preset"},
		{"materials:\n  - name: a\n    type: plasma", "material 0"},
		{"materials:\n  - name: a\n    roughness: 2", "roughness value 2.000000 out of range"},
		{"materials:\n  - name: a\n    albedo: [1, 1]", "albedo: expected 3 components; got 2"},
		{"spheres:\n  - center: [0, 0, 0]\n    radius: 1\n    material: nope", "sphere 0: undefined material with name 'nope'"},
		{"materials:\n  - name: a\nspheres:\n  - center: [0, 0, 0]\n    radius: 0\n    material: a", "sphere 0: invalid radius"},
		{"materials:\n  - name: a\ntriangles:\n  - vertices: [[0, 0, 0], [1, 0, 0]]\n    material: a", "triangle 0: expected 3 vertices; got 2"},
		{"camera:\n  position: [0, 0, 0]\n  look_at: [0, 0, 0]", "look_at must differ from position"},
		{"camera:\n  fov: 200", "invalid fov"},
		{"environment:\n  color: [1]", "environment: color: expected 3 components"},
	}

	for index, s := range specs {
		_, err := Read(context.Background(), mockResource(s.payload))
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
	}
}

func TestReadSceneFromFileWithAssets(t *testing.T) {
	dir, err := ioutil.TempDir("", "scene-reader")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	writePNG(t, filepath.Join(dir, "env.png"), 8, 4, color.RGBA{255, 255, 255, 255})
	writePNG(t, filepath.Join(dir, "albedo.png"), 2, 2, color.RGBA{0, 255, 0, 255})
	writeFile(t, filepath.Join(dir, "model.mtl"), "newmtl tri\nKd 1 0 0\n")
	writeFile(t, filepath.Join(dir, "model.obj"), "mtllib model.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\no tri\nusemtl tri\nf 1 2 3\nusemtl checker\nf 3 2 1\n")
	writeFile(t, filepath.Join(dir, "scene.yaml"), `
environment:
  path: env.png
  max_width: 4
materials:
  - name: checker
    albedo_map: albedo.png
    roughness_map: missing.png
meshes:
  - path: model.obj
`)

	sc, err := ReadFile(context.Background(), filepath.Join(dir, "scene.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	env, ok := sc.Environment.(*texture.Texture)
	if !ok {
		t.Fatalf("expected environment texture; got %T", sc.Environment)
	}
	if env.Width() != 4 || env.Height() != 2 {
		t.Fatalf("expected environment to be downsampled to 4x2; got %dx%d", env.Width(), env.Height())
	}

	if len(sc.Primitives) != 2 {
		t.Fatalf("expected 2 mesh triangles; got %d", len(sc.Primitives))
	}

	// Materials defined in the scene file are visible to meshes
	checker := sc.Materials[0]
	if checker.Name != "checker" || checker.AlbedoMap == nil {
		t.Fatalf("expected checker material with an albedo map; got %+v", checker)
	}
	if checker.RoughnessMap != nil {
		t.Fatal("expected missing roughness map to be ignored")
	}
	if got := checker.AlbedoAt(types.XY(.5, .5)); got != types.XYZ(0, 1, 0) {
		t.Fatalf("expected albedo map to be sampled; got %v", got)
	}

	tri0 := sc.Primitives[0].(*scene.Triangle)
	tri1 := sc.Primitives[1].(*scene.Triangle)
	if tri0.Material.Name != "tri" || tri1.Material != checker {
		t.Fatalf("expected triangles to use 'tri' and 'checker'; got %q and %q", tri0.Material.Name, tri1.Material.Name)
	}
}

func TestReadSceneWithMissingEnvironmentFallsBack(t *testing.T) {
	payload := `
environment:
  path: does-not-exist.png
  color: [1, 2, 3]
materials:
  - name: a
spheres:
  - center: [0, 0, -3]
    radius: 1
    material: a
`
	sc, err := Read(context.Background(), mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	env, ok := sc.Environment.(*texture.Texture)
	if !ok || env.Pixel(0, 0) != types.XYZ(1, 2, 3) {
		t.Fatalf("expected fallback environment color; got %v", sc.Environment)
	}
}

func TestLoadEnvironment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 16, 8))
		png.Encode(w, img)
	}))
	defer server.Close()

	env, err := LoadEnvironment(context.Background(), server.URL+"/env.png", 8)
	if err != nil {
		t.Fatal(err)
	}
	if env.Width() != 8 || env.Height() != 4 {
		t.Fatalf("expected 8x4 environment; got %dx%d", env.Width(), env.Height())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err = LoadEnvironment(ctx, server.URL+"/env.png", 0); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err = png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
