package tracer

import (
	"math"
	"math/rand"

	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
)

// Default maximum number of bounces per path.
const DefaultMaxDepth = 5

// Answers nearest-hit queries; implemented by the BVH.
type Intersector interface {
	Intersect(r scene.Ray) scene.Hit
}

// A path-trace integrator. It holds no mutable state; a single instance can
// be shared by all render workers as long as each worker supplies its own
// random number generator.
type Integrator struct {
	accel Intersector
	env   scene.Environment
}

// Create a new integrator. The environment is optional.
func NewIntegrator(accel Intersector, env scene.Environment) *Integrator {
	return &Integrator{
		accel: accel,
		env:   env,
	}
}

// Estimate the radiance arriving along r using a single random path of at
// most depth bounces.
func (in *Integrator) Trace(r scene.Ray, depth uint32, rng *rand.Rand) types.Vec3 {
	if depth == 0 {
		return types.Vec3{}
	}

	hit := in.accel.Intersect(r)
	if !hit.IsHit() {
		return SampleEnvironment(in.env, r.Dir)
	}

	m := hit.Material
	if m == nil {
		return types.Vec3{}
	}

	color := m.Emission
	switch m.Type {
	case scene.DiffuseMaterial:
		color = color.Add(in.diffuse(r, &hit, m.AlbedoAt(hit.UV), depth, rng))
	case scene.SpecularMaterial:
		color = color.Add(in.reflect(r, &hit, depth, rng))
	case scene.RefractiveMaterial:
		color = color.Add(in.dielectric(r, &hit, m.IOR, depth, rng))
	case scene.MetallicRoughnessMaterial:
		color = color.Add(in.metallicRoughness(r, &hit, m, depth, rng))
	}

	return color
}

// Scatter into the cosine-weighted hemisphere and weight by albedo.
func (in *Integrator) diffuse(r scene.Ray, hit *scene.Hit, albedo types.Vec3, depth uint32, rng *rand.Rand) types.Vec3 {
	n := facingNormal(r, hit.Normal)
	dir := CosineSampleHemisphere(n, rng)
	return in.Trace(spawnRay(hit.Position, n, dir), depth-1, rng).MulVec(albedo)
}

// Follow the ideal mirror reflection.
func (in *Integrator) reflect(r scene.Ray, hit *scene.Hit, depth uint32, rng *rand.Rand) types.Vec3 {
	n := facingNormal(r, hit.Normal)
	return in.Trace(spawnRay(hit.Position, n, r.Dir.Reflect(n)), depth-1, rng)
}

// Choose between reflection and transmission using the Fresnel term.
func (in *Integrator) dielectric(r scene.Ray, hit *scene.Hit, ior float32, depth uint32, rng *rand.Rand) types.Vec3 {
	if rng.Float32() < Fresnel(r.Dir, hit.Normal, ior) {
		return in.reflect(r, hit, depth, rng)
	}
	return in.refract(r, hit, ior, depth, rng)
}

// Follow the refracted ray. Total internal reflection falls back to a
// mirror bounce.
func (in *Integrator) refract(r scene.Ray, hit *scene.Hit, ior float32, depth uint32, rng *rand.Rand) types.Vec3 {
	n := hit.Normal
	eta := 1 / ior
	if r.Dir.Dot(n) > 0 {
		// Leaving the medium
		n = n.Neg()
		eta = ior
	}

	dir, ok := Refract(r.Dir, n, eta)
	if !ok {
		return in.reflect(r, hit, depth, rng)
	}
	return in.Trace(spawnRay(hit.Position, n.Neg(), dir), depth-1, rng)
}

// Stochastically pick a metallic (GGX specular) or dielectric response.
func (in *Integrator) metallicRoughness(r scene.Ray, hit *scene.Hit, m *scene.Material, depth uint32, rng *rand.Rand) types.Vec3 {
	if rng.Float32() < m.MetalnessAt(hit.UV) {
		return in.ggxSpecular(r, hit, m, depth, rng)
	}

	if rng.Float32() < Fresnel(r.Dir, hit.Normal, m.IOR) {
		return in.reflect(r, hit, depth, rng)
	}
	if rng.Float32() < m.Transparency {
		return in.refract(r, hit, m.IOR, depth, rng)
	}
	return in.diffuse(r, hit, m.AlbedoAt(hit.UV), depth, rng)
}

// Reflect the view vector about a GGX-sampled half vector and weight by the
// microfacet Fresnel, occlusion and denominator terms.
func (in *Integrator) ggxSpecular(r scene.Ray, hit *scene.Hit, m *scene.Material, depth uint32, rng *rand.Rand) types.Vec3 {
	n := facingNormal(r, hit.Normal)
	roughness := m.RoughnessAt(hit.UV)

	v := r.Dir.Neg()
	h := GGXSampleHalfVector(roughness, n, rng)
	l := h.Mul(2 * maxf(v.Dot(h), 0)).Sub(v)

	NoV := maxf(n.Dot(v), 0)
	NoL := maxf(n.Dot(l), 0)
	NoH := maxf(n.Dot(h), 0)
	VoH := maxf(v.Dot(h), 0)
	if NoL == 0 {
		// Scattered below the surface
		return types.Vec3{}
	}

	G := GGXGeometricOcclusion(NoL, NoV, roughness)
	Fc := float32(math.Pow(float64(1-VoH), 5))
	F := m.SpecularColor.Mul(1 - Fc).Add(types.XYZ(Fc, Fc, Fc))

	weight := G * VoH / ((NoH * NoV) + .05)
	return in.Trace(spawnRay(hit.Position, n, l), depth-1, rng).MulVec(F).Mul(weight)
}

// Get the normal flipped to face against the incoming ray.
func facingNormal(r scene.Ray, n types.Vec3) types.Vec3 {
	if r.Dir.Dot(n) > 0 {
		return n.Neg()
	}
	return n
}

// Create a secondary ray whose origin is nudged along n to avoid
// re-hitting the surface it leaves.
func spawnRay(pos, n, dir types.Vec3) scene.Ray {
	return scene.NewRay(pos.Add(n.Mul(scene.HitEpsilon)), dir)
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
