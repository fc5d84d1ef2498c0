package reader

import (
	"context"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/achilleasa/progressive-pt/asset"
	"github.com/achilleasa/progressive-pt/asset/texture"
	"github.com/achilleasa/progressive-pt/log"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"
)

// A texture that must be loaded before the scene is complete.
type textureJob struct {
	path     string
	maxWidth uint32
	assign   func(*texture.Texture)
}

type sceneReader struct {
	logger log.Logger

	res    *asset.Resource
	target *scene.Scene

	// Material lookup by name.
	materials map[string]*scene.Material

	textureJobs []textureJob
}

// Read a yaml scene description from a file or URL.
func ReadFile(ctx context.Context, path string) (*scene.Scene, error) {
	res, err := asset.NewResourceContext(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(ctx, res)
}

// Read a yaml scene description. Relative paths to textures, environment
// maps and wavefront meshes are resolved relative to res. Referenced
// textures are loaded concurrently.
func Read(ctx context.Context, res *asset.Resource) (*scene.Scene, error) {
	r := &sceneReader{
		logger:    log.New("scene reader"),
		res:       res,
		target:    scene.NewScene(),
		materials: make(map[string]*scene.Material),
	}

	start := time.Now()
	r.logger.Infof("parsing scene from %s", res.Path())

	data, err := ioutil.ReadAll(res)
	if err != nil {
		return nil, errors.Wrapf(err, "scene reader: could not read %s", res.Path())
	}

	var def sceneDef
	if err = yaml.UnmarshalStrict(data, &def); err != nil {
		return nil, errors.Wrapf(err, "scene reader: could not parse %s", res.Path())
	}

	if err = r.build(ctx, &def); err != nil {
		return nil, errors.Wrapf(err, "scene reader: %s", res.Path())
	}

	r.logger.Infof("parsed scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return r.target, nil
}

// Load an environment map, optionally downsampling it to maxWidth.
func LoadEnvironment(ctx context.Context, path string, maxWidth uint32) (*texture.Texture, error) {
	return loadTexture(ctx, path, nil, maxWidth)
}

func (r *sceneReader) build(ctx context.Context, def *sceneDef) error {
	cam, err := def.Camera.toCamera()
	if err != nil {
		return err
	}
	r.target.SetCamera(cam)

	for index, md := range def.Materials {
		if err = r.addMaterial(md); err != nil {
			return fmt.Errorf("material %d: %s", index, err.Error())
		}
	}

	if def.Environment != nil {
		if err = r.setupEnvironment(def.Environment); err != nil {
			return fmt.Errorf("environment: %s", err.Error())
		}
	}

	if err = r.loadTextures(ctx); err != nil {
		return err
	}

	for index, sd := range def.Spheres {
		if err = r.addSphere(sd); err != nil {
			return fmt.Errorf("sphere %d: %s", index, err.Error())
		}
	}

	for index, td := range def.Triangles {
		if err = r.addTriangle(td); err != nil {
			return fmt.Errorf("triangle %d: %s", index, err.Error())
		}
	}

	for index, md := range def.Meshes {
		if err = r.addMesh(ctx, md); err != nil {
			return fmt.Errorf("mesh %d: %s", index, err.Error())
		}
	}

	if len(r.target.Primitives) == 0 {
		return fmt.Errorf("scene does not define any primitives")
	}

	return nil
}

func (r *sceneReader) addMaterial(def materialDef) error {
	if def.Name == "" {
		return fmt.Errorf("missing material name")
	}
	if _, exists := r.materials[def.Name]; exists {
		return fmt.Errorf("material '%s' already defined", def.Name)
	}

	mat, err := def.toMaterial()
	if err != nil {
		return err
	}

	for _, m := range []struct {
		path   string
		assign func(*texture.Texture)
	}{
		{def.AlbedoMap, func(tex *texture.Texture) { mat.AlbedoMap = tex }},
		{def.RoughnessMap, func(tex *texture.Texture) { mat.RoughnessMap = tex }},
		{def.MetalnessMap, func(tex *texture.Texture) { mat.MetalnessMap = tex }},
	} {
		if m.path != "" {
			r.textureJobs = append(r.textureJobs, textureJob{path: m.path, assign: m.assign})
		}
	}

	r.materials[def.Name] = mat
	return r.target.AddMaterial(mat)
}

func (r *sceneReader) setupEnvironment(def *environmentDef) error {
	var fallback *texture.Texture
	if def.Color != nil {
		color, err := toVec3("color", def.Color)
		if err != nil {
			return err
		}
		if fallback, err = texture.FromPixels(1, 1, 3, color[:]); err != nil {
			return err
		}
		r.target.Environment = fallback
	}

	if def.Path != "" {
		r.textureJobs = append(r.textureJobs, textureJob{
			path:     def.Path,
			maxWidth: def.MaxWidth,
			assign:   func(tex *texture.Texture) { r.target.Environment = tex },
		})
	}
	return nil
}

// Load all queued textures in parallel. Missing textures are skipped so the
// materials fall back to their constant values.
func (r *sceneReader) loadTextures(ctx context.Context) error {
	if len(r.textureJobs) == 0 {
		return nil
	}

	loaded := make([]*texture.Texture, len(r.textureJobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for index, job := range r.textureJobs {
		index, job := index, job
		g.Go(func() error {
			tex, err := loadTexture(gctx, job.path, r.res, job.maxWidth)
			if err != nil {
				if os.IsNotExist(errors.Cause(err)) {
					r.logger.Warningf("ignoring missing texture %s", job.path)
					return nil
				}
				return err
			}
			loaded[index] = tex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for index, tex := range loaded {
		if tex != nil {
			r.textureJobs[index].assign(tex)
		}
	}
	r.logger.Debugf("loaded %d textures", len(r.textureJobs))
	return nil
}

func (r *sceneReader) addSphere(def sphereDef) error {
	center, err := toVec3("center", def.Center)
	if err != nil {
		return err
	}
	if def.Radius <= 0 {
		return fmt.Errorf("invalid radius %f", def.Radius)
	}
	mat, err := r.lookupMaterial(def.Material)
	if err != nil {
		return err
	}
	return r.target.AddPrimitive(scene.NewSphere(center, def.Radius, mat))
}

func (r *sceneReader) addTriangle(def triangleDef) error {
	if len(def.Vertices) != 3 {
		return fmt.Errorf("expected 3 vertices; got %d", len(def.Vertices))
	}
	if def.UV != nil && len(def.UV) != 3 {
		return fmt.Errorf("expected 3 uv coordinates; got %d", len(def.UV))
	}

	var (
		vertices [3]types.Vec3
		uv       [3]types.Vec2
		err      error
	)
	for i := 0; i < 3; i++ {
		if vertices[i], err = toVec3(fmt.Sprintf("vertex %d", i), def.Vertices[i]); err != nil {
			return err
		}
		if def.UV != nil {
			if len(def.UV[i]) != 2 {
				return fmt.Errorf("uv %d: expected 2 components; got %d", i, len(def.UV[i]))
			}
			uv[i] = types.XY(def.UV[i][0], def.UV[i][1])
		}
	}

	mat, err := r.lookupMaterial(def.Material)
	if err != nil {
		return err
	}
	return r.target.AddPrimitive(scene.NewTriangle(vertices, uv, mat))
}

func (r *sceneReader) addMesh(ctx context.Context, def meshDef) error {
	meshRes, err := asset.NewResourceContext(ctx, def.Path, r.res)
	if err != nil {
		return err
	}
	defer meshRes.Close()

	return newWavefrontReader(r.target, r.materials).Read(meshRes)
}

func (r *sceneReader) lookupMaterial(name string) (*scene.Material, error) {
	mat, exists := r.materials[name]
	if !exists {
		return nil, fmt.Errorf("undefined material with name '%s'", name)
	}
	return mat, nil
}

func loadTexture(ctx context.Context, path string, relTo *asset.Resource, maxWidth uint32) (*texture.Texture, error) {
	res, err := asset.NewResourceContext(ctx, path, relTo)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	tex, err := texture.New(res)
	if err != nil {
		return nil, err
	}
	return tex.Downsample(maxWidth), nil
}

type sceneDef struct {
	Camera      cameraDef       `yaml:"camera"`
	Environment *environmentDef `yaml:"environment"`
	Materials   []materialDef   `yaml:"materials"`
	Spheres     []sphereDef     `yaml:"spheres"`
	Triangles   []triangleDef   `yaml:"triangles"`
	Meshes      []meshDef       `yaml:"meshes"`
}

type cameraDef struct {
	// Vertical field of view in degrees.
	FOV      float32   `yaml:"fov"`
	Position []float32 `yaml:"position"`
	LookAt   []float32 `yaml:"look_at"`
	Up       []float32 `yaml:"up"`

	// Rotation applied to the view direction, in degrees.
	Pitch float32 `yaml:"pitch"`
	Yaw   float32 `yaml:"yaw"`
}

func (def cameraDef) toCamera() (*scene.Camera, error) {
	fov := def.FOV
	if fov == 0 {
		fov = 45
	} else if fov < 0 || fov >= 180 {
		return nil, fmt.Errorf("camera: invalid fov %f", fov)
	}
	cam := scene.NewCamera(fov)

	var err error
	for _, field := range []struct {
		name   string
		values []float32
		target *types.Vec3
	}{
		{"position", def.Position, &cam.Position},
		{"look_at", def.LookAt, &cam.LookAt},
		{"up", def.Up, &cam.Up},
	} {
		if field.values == nil {
			continue
		}
		if *field.target, err = toVec3("camera "+field.name, field.values); err != nil {
			return nil, err
		}
	}

	if cam.LookAt.Sub(cam.Position).Len() == 0 {
		return nil, fmt.Errorf("camera: look_at must differ from position")
	}

	toRad := float32(math.Pi / 180.0)
	cam.Pitch = def.Pitch * toRad
	cam.Yaw = def.Yaw * toRad
	cam.Update()
	return cam, nil
}

type environmentDef struct {
	Path     string    `yaml:"path"`
	MaxWidth uint32    `yaml:"max_width"`
	Color    []float32 `yaml:"color"`
}

type materialDef struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
	Type   string `yaml:"type"`

	Albedo   []float32 `yaml:"albedo"`
	Emission []float32 `yaml:"emission"`
	Specular []float32 `yaml:"specular"`

	Roughness    *float32 `yaml:"roughness"`
	Metalness    *float32 `yaml:"metalness"`
	IOR          *float32 `yaml:"ior"`
	Transparency *float32 `yaml:"transparency"`

	AlbedoMap    string `yaml:"albedo_map"`
	RoughnessMap string `yaml:"roughness_map"`
	MetalnessMap string `yaml:"metalness_map"`
}

// Build a material from its definition. Presets provide the initial values
// which any explicitly defined fields override.
func (def materialDef) toMaterial() (*scene.Material, error) {
	var (
		mat *scene.Material
		err error
	)

	if def.Preset != "" {
		if mat, err = scene.MaterialPreset(def.Preset); err != nil {
			return nil, err
		}
		mat.Name = def.Name
	} else {
		mat = scene.NewDiffuse(def.Name, types.XYZ(.7, .7, .7))
		mat.IOR = 1.5
	}

	if def.Type != "" || def.Preset == "" {
		if mat.Type, err = scene.ParseMaterialType(def.Type); err != nil {
			return nil, err
		}
	}

	for _, field := range []struct {
		name   string
		values []float32
		target *types.Vec3
	}{
		{"albedo", def.Albedo, &mat.Albedo},
		{"emission", def.Emission, &mat.Emission},
		{"specular", def.Specular, &mat.SpecularColor},
	} {
		if field.values == nil {
			continue
		}
		if *field.target, err = toVec3(field.name, field.values); err != nil {
			return nil, err
		}
	}

	// Metallic-roughness materials reflect their albedo unless told otherwise
	if mat.Type == scene.MetallicRoughnessMaterial && def.Specular == nil && def.Albedo != nil {
		mat.SpecularColor = mat.Albedo
	}

	for _, field := range []struct {
		name  string
		value *float32
		min   float32
		max   float32
		dst   *float32
	}{
		{"roughness", def.Roughness, 0, 1, &mat.Roughness},
		{"metalness", def.Metalness, 0, 1, &mat.Metalness},
		{"transparency", def.Transparency, 0, 1, &mat.Transparency},
		{"ior", def.IOR, 1, math.MaxFloat32, &mat.IOR},
	} {
		if field.value == nil {
			continue
		}
		if *field.value < field.min || *field.value > field.max {
			return nil, fmt.Errorf("%s value %f out of range [%g, %g]", field.name, *field.value, field.min, field.max)
		}
		*field.dst = *field.value
	}

	return mat, nil
}

type sphereDef struct {
	Center   []float32 `yaml:"center"`
	Radius   float32   `yaml:"radius"`
	Material string    `yaml:"material"`
}

type triangleDef struct {
	Vertices [][]float32 `yaml:"vertices"`
	UV       [][]float32 `yaml:"uv"`
	Material string      `yaml:"material"`
}

type meshDef struct {
	Path string `yaml:"path"`
}

func toVec3(name string, values []float32) (types.Vec3, error) {
	if len(values) != 3 {
		return types.Vec3{}, fmt.Errorf("%s: expected 3 components; got %d", name, len(values))
	}
	return types.XYZ(values[0], values[1], values[2]), nil
}
