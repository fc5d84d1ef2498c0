package scene

import (
	"math"
	"testing"

	"github.com/achilleasa/progressive-pt/types"
)

func TestSphereIntersection(t *testing.T) {
	mat := NewDiffuse("white", types.XYZ(1, 1, 1))
	sphere := NewSphere(types.XYZ(0, 0, 0), 1, mat)

	type spec struct {
		origin    types.Vec3
		dir       types.Vec3
		expHit    bool
		expDist   float32
		expNormal types.Vec3
	}
	specs := []spec{
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), true, 4, types.XYZ(0, 0, 1)},
		{types.XYZ(-3, 0, 0), types.XYZ(1, 0, 0), true, 2, types.XYZ(-1, 0, 0)},
		// From inside, the far side is hit
		{types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), true, 1, types.XYZ(0, 1, 0)},
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, 1), false, 0, types.Vec3{}},
		{types.XYZ(0, 2, 5), types.XYZ(0, 0, -1), false, 0, types.Vec3{}},
	}

	for index, s := range specs {
		hit := sphere.Intersect(NewRay(s.origin, s.dir))
		if hit.IsHit() != s.expHit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.expHit, hit.IsHit())
		}
		if !s.expHit {
			if hit != NoHit {
				t.Fatalf("[spec %d] expected NoHit sentinel; got %v", index, hit)
			}
			continue
		}
		if math.Abs(float64(hit.Distance-s.expDist)) > 1e-5 {
			t.Fatalf("[spec %d] expected distance %f; got %f", index, s.expDist, hit.Distance)
		}
		if !types.ApproxEqual(hit.Normal, s.expNormal, 1e-5) {
			t.Fatalf("[spec %d] expected normal %v; got %v", index, s.expNormal, hit.Normal)
		}
		if hit.Material != mat {
			t.Fatalf("[spec %d] expected hit to reference the sphere material", index)
		}
	}
}

func TestSphereUV(t *testing.T) {
	sphere := NewSphere(types.XYZ(0, 0, 0), 1, nil)

	// Hitting the top pole maps to v = 0
	hit := sphere.Intersect(NewRay(types.XYZ(0, 5, 0), types.XYZ(0, -1, 0)))
	if math.Abs(float64(hit.UV[1])) > 1e-5 {
		t.Fatalf("expected v = 0 at the north pole; got %f", hit.UV[1])
	}

	// Hitting +x on the equator maps to u = 0.5, v = 0.5
	hit = sphere.Intersect(NewRay(types.XYZ(5, 0, 0), types.XYZ(-1, 0, 0)))
	if math.Abs(float64(hit.UV[0]-.5)) > 1e-5 || math.Abs(float64(hit.UV[1]-.5)) > 1e-5 {
		t.Fatalf("expected uv (0.5, 0.5); got %v", hit.UV)
	}
}

func TestTriangleIntersection(t *testing.T) {
	tri := NewTriangle(
		[3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)},
		[3]types.Vec2{types.XY(0, 0), types.XY(1, 0), types.XY(0, 1)},
		nil,
	)

	type spec struct {
		origin  types.Vec3
		dir     types.Vec3
		expHit  bool
		expDist float32
		expUV   types.Vec2
	}
	specs := []spec{
		{types.XYZ(.25, .25, 1), types.XYZ(0, 0, -1), true, 1, types.XY(.25, .25)},
		{types.XYZ(.5, 0, -2), types.XYZ(0, 0, 1), true, 2, types.XY(.5, 0)},
		// Outside the triangle edges
		{types.XYZ(.75, .75, 1), types.XYZ(0, 0, -1), false, 0, types.Vec2{}},
		// Parallel to the triangle plane
		{types.XYZ(.25, .25, 1), types.XYZ(1, 0, 0), false, 0, types.Vec2{}},
		// Triangle behind the ray origin
		{types.XYZ(.25, .25, 1), types.XYZ(0, 0, 1), false, 0, types.Vec2{}},
	}

	for index, s := range specs {
		hit := tri.Intersect(NewRay(s.origin, s.dir))
		if hit.IsHit() != s.expHit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.expHit, hit.IsHit())
		}
		if !s.expHit {
			continue
		}
		if math.Abs(float64(hit.Distance-s.expDist)) > 1e-5 {
			t.Fatalf("[spec %d] expected distance %f; got %f", index, s.expDist, hit.Distance)
		}
		if math.Abs(float64(hit.UV[0]-s.expUV[0])) > 1e-5 || math.Abs(float64(hit.UV[1]-s.expUV[1])) > 1e-5 {
			t.Fatalf("[spec %d] expected uv %v; got %v", index, s.expUV, hit.UV)
		}
		if !types.ApproxEqual(hit.Normal, types.XYZ(0, 0, 1), 1e-6) {
			t.Fatalf("[spec %d] expected normal (0, 0, 1); got %v", index, hit.Normal)
		}
	}
}

func TestPrimitiveBBox(t *testing.T) {
	sphere := NewSphere(types.XYZ(1, 2, 3), 2, nil)
	if exp := NewAABB(types.XYZ(-1, 0, 1), types.XYZ(3, 4, 5)); sphere.BBox() != exp {
		t.Fatalf("expected sphere bbox %v; got %v", exp, sphere.BBox())
	}

	tri := NewTriangle(
		[3]types.Vec3{types.XYZ(0, 5, 0), types.XYZ(-1, 0, 2), types.XYZ(3, 1, -1)},
		[3]types.Vec2{},
		nil,
	)
	if exp := NewAABB(types.XYZ(-1, 0, -1), types.XYZ(3, 5, 2)); tri.BBox() != exp {
		t.Fatalf("expected triangle bbox %v; got %v", exp, tri.BBox())
	}
}
