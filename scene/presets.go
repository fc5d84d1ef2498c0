package scene

import (
	"fmt"

	"github.com/achilleasa/progressive-pt/types"
)

// Build a demo scene containing a size x size grid of metallic-roughness
// spheres lit by a large emissive sphere. Metalness increases along the
// grid rows and roughness along the columns.
func GridScene(size int) *Scene {
	sc := NewScene()

	light := NewEmissive("light", types.XYZ(4, 4, 4))
	sc.AddMaterial(light)
	sc.AddPrimitive(NewSphere(types.XYZ(-20, 20, 0), 8, light))

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			mat := NewMetallicRoughness(
				fmt.Sprintf("mr-%d-%d", i, j),
				float32(i)/float32(size),
				float32(j)/float32(size),
				types.XYZ(1, 1, 1),
			)
			sc.AddMaterial(mat)
			sc.AddPrimitive(NewSphere(types.XYZ(0, float32(i)*2.1, float32(j)*2.1), 1, mat))
		}
	}

	// Point the camera at the grid center from the +x side.
	center := float32(size-1) * 2.1 / 2
	cam := NewCamera(45)
	cam.Position = types.XYZ(float32(size)*4, center, center)
	cam.LookAt = types.XYZ(0, center, center)
	sc.SetCamera(cam)
	return sc
}
