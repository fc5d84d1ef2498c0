package types

import (
	"math"
	"testing"
)

func TestVec3Ops(t *testing.T) {
	v1 := XYZ(1, 2, 3)
	v2 := XYZ(4, 5, 6)

	if got := v1.Add(v2); got != XYZ(5, 7, 9) {
		t.Fatalf("expected add result to be (5, 7, 9); got %v", got)
	}
	if got := v2.Sub(v1); got != XYZ(3, 3, 3) {
		t.Fatalf("expected sub result to be (3, 3, 3); got %v", got)
	}
	if got := v1.Dot(v2); got != 32 {
		t.Fatalf("expected dot product to be 32; got %f", got)
	}
	if got := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0)); got != XYZ(0, 0, 1) {
		t.Fatalf("expected cross product to be (0, 0, 1); got %v", got)
	}
	if got := v1.MulVec(v2); got != XYZ(4, 10, 18) {
		t.Fatalf("expected component-wise product to be (4, 10, 18); got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	n := XYZ(3, 0, 4).Normalize()
	if !ApproxEqual(n, XYZ(0.6, 0, 0.8), 1e-6) {
		t.Fatalf("expected normalized vector to be (0.6, 0, 0.8); got %v", n)
	}

	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Fatalf("expected zero vector to stay zero; got %v", z)
	}
}

func TestReflect(t *testing.T) {
	in := XYZ(1, -1, 0)
	out := in.Reflect(XYZ(0, 1, 0))
	if !ApproxEqual(out, XYZ(1, 1, 0), 1e-6) {
		t.Fatalf("expected reflected vector to be (1, 1, 0); got %v", out)
	}
}

func TestClampAndFinite(t *testing.T) {
	v := XYZ(-1, 0.5, 3).Clamp(0, 1)
	if v != XYZ(0, 0.5, 1) {
		t.Fatalf("expected clamped vector to be (0, 0.5, 1); got %v", v)
	}

	if !v.IsFinite() {
		t.Fatal("expected clamped vector to be finite")
	}
	if XYZ(float32(math.NaN()), 0, 0).IsFinite() {
		t.Fatal("expected NaN vector to be reported as non-finite")
	}
	if XYZ(0, float32(math.Inf(1)), 0).IsFinite() {
		t.Fatal("expected Inf vector to be reported as non-finite")
	}
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(XYZ(0, 1, 0), math.Pi/2)
	out := q.Rotate(XYZ(1, 0, 0))
	if !ApproxEqual(out, XYZ(0, 0, -1), 1e-5) {
		t.Fatalf("expected rotated vector to be (0, 0, -1); got %v", out)
	}

	identity := q.Mul(Quat{V: q.V.Neg(), W: q.W}).Normalize()
	if !ApproxEqual(identity.V, Vec3{}, 1e-5) || math.Abs(float64(identity.W-1)) > 1e-5 {
		t.Fatalf("expected q * conj(q) to be identity; got %v", identity)
	}
}
