package scene

import (
	"fmt"
	"math/rand"

	"github.com/achilleasa/progressive-pt/types"
	"github.com/go-gl/mathgl/mgl32"
)

// Stores the ray directions at the four corners of the camera frustrum. It is
// used as a shortcut for generating per pixel rays via interpolation of the
// corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// The camera type controls the scene camera. Once Update has been called the
// camera is read-only and GeneratePrimaryRay may be invoked concurrently.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Pending rotation (in radians) applied by the next call to Update.
	Pitch float32
	Yaw   float32

	// Vertical field of view in degrees.
	FOV float32

	ViewMat  mgl32.Mat4
	ProjMat  mgl32.Mat4
	Frustrum Frustrum
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		ViewMat:  mgl32.Ident4(),
		ProjMat:  mgl32.Ident4(),
		Position: types.XYZ(0, 0, 0),
		LookAt:   types.XYZ(0, 0, -1),
		Up:       types.XYZ(0, 1, 0),
		FOV:      fov,
	}
}

// Setup camera projection matrix.
func (c *Camera) SetupProjection(aspect float32) {
	c.ProjMat = mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, 1, 1000)
	c.Update()
}

// Apply any pending pitch/yaw rotation and recalculate the view matrix and
// the frustrum corner rays.
func (c *Camera) Update() {
	dir := c.LookAt.Sub(c.Position).Normalize()
	if c.Pitch != 0 || c.Yaw != 0 {
		pitchAxis := dir.Cross(c.Up)
		pitchQuat := types.QuatFromAxisAngle(pitchAxis, c.Pitch)
		yawQuat := types.QuatFromAxisAngle(c.Up, c.Yaw)

		orientQuat := pitchQuat.Mul(yawQuat).Normalize()
		dir = orientQuat.Rotate(dir)
		c.LookAt = c.Position.Add(dir)
		c.Pitch, c.Yaw = 0, 0
	}

	c.ViewMat = mgl32.LookAtV(mgl32.Vec3(c.Position), mgl32.Vec3(c.LookAt), mgl32.Vec3(c.Up))
	c.updateFrustrum()
}

// Get the inverse of the combined view/projection matrix.
func (c *Camera) InvViewProjMat() mgl32.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a ray vector for each corner of the camera frustrum by
// multiplying clip space vectors for each corner with the inv proj/view
// matrix, applying perspective and subtracting the camera eye position.
func (c *Camera) updateFrustrum() {
	invProjViewMat := c.InvViewProjMat()
	corners := [4]mgl32.Vec4{
		{-1, 1, -1, 1},
		{1, 1, -1, 1},
		{-1, -1, -1, 1},
		{1, -1, -1, 1},
	}
	for i, corner := range corners {
		v := invProjViewMat.Mul4x1(corner)
		c.Frustrum[i] = types.Vec3(v.Vec3().Mul(1.0 / v[3])).Sub(c.Position)
	}
}

// Generate a ray through pixel (x, y) of a frameW x frameH image. The sample
// position is jittered inside the pixel using rng; a nil rng samples the
// pixel center.
func (c *Camera) GeneratePrimaryRay(x, y, frameW, frameH uint32, rng *rand.Rand) Ray {
	jx, jy := float32(.5), float32(.5)
	if rng != nil {
		jx, jy = rng.Float32(), rng.Float32()
	}
	tx := (float32(x) + jx) / float32(frameW)
	ty := (float32(y) + jy) / float32(frameH)

	top := lerp(c.Frustrum[0], c.Frustrum[1], tx)
	bottom := lerp(c.Frustrum[2], c.Frustrum[3], tx)
	return NewRay(c.Position, lerp(top, bottom, ty))
}

func lerp(a, b types.Vec3, t float32) types.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
