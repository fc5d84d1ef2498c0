package reader

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/achilleasa/progressive-pt/asset"
	"github.com/achilleasa/progressive-pt/asset/texture"
	"github.com/achilleasa/progressive-pt/log"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// A triangular face parsed from a wavefront file.
type face struct {
	vertices [3]types.Vec3
	uv       [3]types.Vec2
	material *scene.Material
}

// A mesh is comprised of a list of faces.
type mesh struct {
	name  string
	faces []face
}

// The wavefront reader parses obj geometry and mtl material libraries and
// appends the generated triangles and materials to a target scene.
type wavefrontReader struct {
	logger log.Logger

	target *scene.Scene

	// Material lookup by name; shared with the yaml reader so meshes can
	// reference materials defined in the scene file.
	materials map[string]*scene.Material

	// Currently selected material.
	curMaterial *scene.Material

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	meshes    []*mesh
	instances int

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

func newWavefrontReader(target *scene.Scene, materials map[string]*scene.Material) *wavefrontReader {
	return &wavefrontReader{
		logger:     log.New("wavefront reader"),
		target:     target,
		materials:  materials,
		vertexList: make([]types.Vec3, 0),
		normalList: make([]types.Vec3, 0),
		uvList:     make([]types.Vec2, 0),
		meshes:     make([]*mesh, 0),
		errStack:   make([]string, 0),
	}
}

// Parse a wavefront resource and append its geometry to the target scene.
// Meshes are added as-is unless the file defines mesh instances.
func (r *wavefrontReader) Read(res *asset.Resource) error {
	r.logger.Infof("parsing %s", res.Path())

	err := r.parse(res)
	if err != nil {
		return err
	}

	if r.instances == 0 {
		for _, m := range r.meshes {
			if err = r.emitMesh(m, mgl32.Ident4()); err != nil {
				return err
			}
		}
	}

	return nil
}

// Append mesh triangles to the target scene after applying a transformation.
func (r *wavefrontReader) emitMesh(m *mesh, transform mgl32.Mat4) error {
	for _, f := range m.faces {
		var vertices [3]types.Vec3
		for i, v := range f.vertices {
			vertices[i] = types.Vec3(mgl32.TransformCoordinate(mgl32.Vec3(v), transform))
		}
		if err := r.target.AddPrimitive(scene.NewTriangle(vertices, f.uv, f.material)); err != nil {
			return err
		}
	}
	r.logger.Debugf("emitted %d triangles for mesh '%s'", len(m.faces), m.name)
	return nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return errors.New(errMsg)
}

// Push a frame to the error stack.
func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Create and select a default material for surfaces not using one.
func (r *wavefrontReader) defaultMaterial() *scene.Material {
	const matName = "default"

	mat, exists := r.materials[matName]
	if !exists {
		mat = scene.NewDiffuse(matName, types.XYZ(.7, .7, .7))
		r.target.AddMaterial(mat)
		r.materials[matName] = mat
	}
	return mat
}

// Parse wavefront object scene format.
func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int = 0

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for 'usemtl'; expected 1 argument; got %d", len(lineTokens)-1)
			}

			mat, exists := r.materials[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, "undefined material with name '%s'", lineTokens[1])
			}
			r.curMaterial = mat
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for '%s'; expected 1 argument for object name; got %d", lineTokens[0], len(lineTokens)-1)
			}

			r.meshes = append(r.meshes, &mesh{name: lineTokens[1]})
		case "f":
			f, err := r.parseFace(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}

			// If no object has been defined create a default one
			if len(r.meshes) == 0 {
				r.meshes = append(r.meshes, &mesh{name: "default"})
			}

			m := r.meshes[len(r.meshes)-1]
			m.faces = append(m.faces, f)
		case "instance":
			m, transform, err := r.parseMeshInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			if err = r.emitMesh(m, transform); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.instances++
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err)
	}

	return nil
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontReader) parseMeshInstance(lineTokens []string) (*mesh, mgl32.Mat4, error) {
	if len(lineTokens) != 11 {
		return nil, mgl32.Mat4{}, fmt.Errorf("unsupported syntax for 'instance'; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d", len(lineTokens)-1)
	}

	// Find object by name
	var target *mesh
	for _, m := range r.meshes {
		if m.name == lineTokens[1] {
			target = m
			break
		}
	}
	if target == nil {
		return nil, mgl32.Mat4{}, fmt.Errorf("unknown mesh with name '%s'", lineTokens[1])
	}

	var args [9]float32
	for index := range args {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return nil, mgl32.Mat4{}, err
		}
		args[index] = float32(v)
	}

	// Generate final matrix: M = T * R * S
	toRad := float32(math.Pi / 180.0)
	rotMat := mgl32.AnglesToQuat(args[3]*toRad, args[4]*toRad, args[5]*toRad, mgl32.XYZ).Normalize().Mat4()
	scaleMat := mgl32.Scale3D(args[6], args[7], args[8])
	transMat := mgl32.Translate3D(args[0], args[1], args[2])

	return target, transMat.Mul4(rotMat.Mul4(scaleMat)), nil
}

// Parse face definition. Each face definitions consists of 3 arguments,
// one for each vertex. Each one of the vertex arguments is comprised of
// 1, 2 or 3 args separated by a slash character. The following formats are
// supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate
// an offset off the end of the vertex/uv list.
//
// This method only works with triangular faces and will return an error if a
// face with more than 3 vertices is encountered. Vertex normals are validated
// but not used; triangles always use their geometric normal.
func (r *wavefrontReader) parseFace(lineTokens []string) (face, error) {
	var f face
	if len(lineTokens) != 4 {
		return f, fmt.Errorf("unsupported syntax for 'f'; expected 3 arguments for triangular face; got %d. Select the triangulation option in your exporter.", len(lineTokens)-1)
	}

	expIndices := 0
	for arg := 0; arg < 3; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return f, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return f, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return f, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		f.vertices[arg] = r.vertexList[vOffset]

		// Parse UV coords if specified
		if len(vTokens) > 1 && vTokens[1] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList))
			if err != nil {
				return f, fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
			f.uv[arg] = r.uvList[vOffset]
		}

		if len(vTokens) > 2 && vTokens[2] != "" {
			if _, err = selectFaceCoordIndex(vTokens[2], len(r.normalList)); err != nil {
				return f, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
		}
	}

	// If no material defined select the default
	if r.curMaterial == nil {
		r.curMaterial = r.defaultMaterial()
	}
	f.material = r.curMaterial

	return f, nil
}

// Parse a wavefront material library. Besides the standard Kd, Ks, Ke, Ni,
// d and Tr statements, libraries may use the following extensions:
// - Pt   : material type (diffuse, specular, refractive, metallic-roughness)
// - Nr   : roughness
// - Nm   : metalness
// - map_Nr, map_Nm : roughness and metalness maps
func (r *wavefrontReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	scanner := bufio.NewScanner(res)

	var curMaterial *scene.Material

	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "newmtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for 'newmtl'; expected 1 argument; got %d", len(lineTokens)-1)
			}

			matName := lineTokens[1]
			if _, exists := r.materials[matName]; exists {
				return r.emitError(res.Path(), lineNum, "material '%s' already defined", matName)
			}

			curMaterial = scene.NewDiffuse(matName, types.XYZ(.7, .7, .7))
			curMaterial.IOR = 1.5
			r.target.AddMaterial(curMaterial)
			r.materials[matName] = curMaterial
		default:
			if curMaterial == nil {
				return r.emitError(res.Path(), lineNum, "got '%s' without a 'newmtl'", lineTokens[0])
			}

			switch lineTokens[0] {
			case "Kd":
				curMaterial.Albedo, err = parseVec3(lineTokens)
			case "Ks":
				curMaterial.SpecularColor, err = parseVec3(lineTokens)
			case "Ke":
				curMaterial.Emission, err = parseVec3(lineTokens)
			case "Ni":
				curMaterial.IOR, err = parseFloat32(lineTokens)
			case "Nr":
				curMaterial.Roughness, err = parseFloat32(lineTokens)
			case "Nm":
				curMaterial.Metalness, err = parseFloat32(lineTokens)
			case "Tr":
				curMaterial.Transparency, err = parseFloat32(lineTokens)
			case "d":
				var dissolve float32
				dissolve, err = parseFloat32(lineTokens)
				curMaterial.Transparency = 1 - dissolve
			case "Pt":
				if len(lineTokens) != 2 {
					err = fmt.Errorf("unsupported syntax for 'Pt'; expected 1 argument; got %d", len(lineTokens)-1)
					break
				}
				curMaterial.Type, err = scene.ParseMaterialType(lineTokens[1])
			case "map_Kd", "map_Nr", "map_Nm":
				if len(lineTokens) != 2 {
					err = fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
					break
				}

				var tex *texture.Texture
				tex, err = r.loadTexture(lineTokens[1], res)
				if err != nil || tex == nil {
					break
				}

				switch lineTokens[0] {
				case "map_Kd":
					curMaterial.AlbedoMap = tex
				case "map_Nr":
					curMaterial.RoughnessMap = tex
				case "map_Nm":
					curMaterial.MetalnessMap = tex
				}
			}

			// Report any errors
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
		}
	}

	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err)
	}

	return nil
}

// Load a texture relative to the referencing resource. Missing local
// textures are ignored so the material falls back to its constant values.
func (r *wavefrontReader) loadTexture(path string, relTo *asset.Resource) (*texture.Texture, error) {
	imgRes, err := asset.NewResource(path, relTo)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			r.logger.Warningf("ignoring missing texture %s", path)
			return nil, nil
		}
		return nil, err
	}
	defer imgRes.Close()

	return texture.New(imgRes)
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf("unsupported syntax for '%s'; expected 2 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
