package tracer

import (
	"math"
	"math/rand"

	"github.com/achilleasa/progressive-pt/types"
)

var sqrtOfOneThird = float32(math.Sqrt(1.0 / 3.0))

// Sample a direction from the cosine-weighted hemisphere around normal n.
func CosineSampleHemisphere(n types.Vec3, rng *rand.Rand) types.Vec3 {
	up := float32(math.Sqrt(rng.Float64())) // cos(theta)
	over := float32(math.Sqrt(float64(1 - up*up)))
	around := rng.Float64() * 2 * math.Pi

	perp1, perp2 := OrthonormalBasis(n)

	return n.Mul(up).
		Add(perp1.Mul(float32(math.Cos(around)) * over)).
		Add(perp2.Mul(float32(math.Sin(around)) * over)).
		Normalize()
}

// Build two unit vectors that together with the unit vector n form an
// orthonormal basis.
func OrthonormalBasis(n types.Vec3) (types.Vec3, types.Vec3) {
	// Pick the world axis least aligned with n; at least one component of
	// a unit vector is below sqrt(1/3) unless all are equal.
	var notNormal types.Vec3
	switch {
	case abs32(n[0]) < sqrtOfOneThird:
		notNormal = types.XYZ(1, 0, 0)
	case abs32(n[1]) < sqrtOfOneThird:
		notNormal = types.XYZ(0, 1, 0)
	default:
		notNormal = types.XYZ(0, 0, 1)
	}
	perp1 := n.Cross(notNormal).Normalize()
	perp2 := n.Cross(perp1).Normalize()
	return perp1, perp2
}

// Importance-sample a GGX microfacet half-vector around normal n.
func GGXSampleHalfVector(roughness float32, n types.Vec3, rng *rand.Rand) types.Vec3 {
	xi0, xi1 := rng.Float64(), rng.Float64()
	alpha := float64(roughness * roughness)
	phi := 2 * math.Pi * xi0
	cosTheta := math.Sqrt((1 - xi1) / (1 + (alpha*alpha-1)*xi1))
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))

	up := types.XYZ(1, 0, 0)
	if abs32(n[2]) < .999 {
		up = types.XYZ(0, 0, 1)
	}
	tangentX := up.Cross(n).Normalize()
	tangentY := n.Cross(tangentX)

	return tangentX.Mul(float32(sinTheta * math.Cos(phi))).
		Add(tangentY.Mul(float32(sinTheta * math.Sin(phi)))).
		Add(n.Mul(float32(cosTheta))).
		Normalize()
}

// Smith-style geometric occlusion term for the GGX distribution.
func GGXGeometricOcclusion(NoL, NoV, roughness float32) float32 {
	r2 := float64(roughness * roughness)
	attL := 2 * float64(NoL) / (float64(NoL) + math.Sqrt(r2+(1-r2)*float64(NoL*NoL)))
	attV := 2 * float64(NoV) / (float64(NoV) + math.Sqrt(r2+(1-r2)*float64(NoV*NoV)))
	if math.IsNaN(attL) || math.IsNaN(attV) {
		return 0
	}
	return float32(attL * attV)
}

// Evaluate the unpolarized Fresnel reflectance for incident direction I
// hitting a surface with normal N. The normal is assumed to point outside
// the medium; rays exiting the medium are detected from the sign of I.N.
// Total internal reflection yields 1.
func Fresnel(I, N types.Vec3, ior float32) float32 {
	cosi := float64(I.Dot(N))
	cosi = math.Max(-1, math.Min(1, cosi))
	etai, etat := 1.0, float64(ior)
	if cosi > 0 {
		etai, etat = etat, etai
	}

	sint := etai / etat * math.Sqrt(math.Max(0, 1-cosi*cosi))
	if sint >= 1 {
		return 1
	}

	cost := math.Sqrt(math.Max(0, 1-sint*sint))
	cosi = math.Abs(cosi)
	rs := ((etat * cosi) - (etai * cost)) / ((etat * cosi) + (etai * cost))
	rp := ((etai * cosi) - (etat * cost)) / ((etai * cosi) + (etat * cost))
	return float32((rs*rs + rp*rp) / 2)
}

// Refract incident direction I through a surface with normal N (facing the
// incident side) using the relative index of refraction eta. The second
// return value is false on total internal reflection.
func Refract(I, N types.Vec3, eta float32) (types.Vec3, bool) {
	cosi := I.Dot(N)
	k := 1 - eta*eta*(1-cosi*cosi)
	if k < 0 {
		return types.Vec3{}, false
	}
	return I.Mul(eta).Sub(N.Mul(eta*cosi + float32(math.Sqrt(float64(k))))).Normalize(), true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
