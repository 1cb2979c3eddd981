// Package studio composes a render-ready scene from decoded geometry: the
// model centered at the origin and stood upright, a three-light rig with
// hemisphere ambient, and a shadow-catching ground plane whose base color
// matches the backdrop so only the contact shadow reads in renders.
package studio

import (
	"github.com/fogleman/fauxgl"
	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/mesh"
)

const (
	// shadowSpread widens the contact shadow ellipse past the model
	// footprint so the penumbra clears the silhouette.
	shadowSpread = 1.25
	// shadowFeatherFrac adds a soft margin proportional to the bounding
	// radius to each ellipse axis.
	shadowFeatherFrac = 0.15
	// shadowOffsetFrac displaces the shadow opposite the key light, as a
	// fraction of the bounding radius.
	shadowOffsetFrac = 0.3
	// groundDropFrac sinks the catcher a hair below the mesh so coplanar
	// bottom faces do not fight it in the depth buffer.
	groundDropFrac = 1e-3
)

// Options tunes the composed studio. The zero Options means DefaultOptions;
// a partially filled one keeps its explicit values, including zero light
// intensities.
type Options struct {
	// BackgroundHex is the backdrop color; the ground plane reuses it.
	BackgroundHex string
	// FallbackHex colors vertices that carry no recorded color.
	FallbackHex string
	// SmoothAngleDeg merges vertex normals across edges flatter than this
	// many degrees. Sharper edges stay faceted.
	SmoothAngleDeg float64
	// GroundScale sizes the ground quad as a multiple of the bounding
	// radius.
	GroundScale float64
	// ShadowStrength is the peak darkening of the contact shadow, 0 to 1.
	ShadowStrength float64
	// KeyIntensity, FillIntensity, RimIntensity, and AmbientIntensity
	// scale the rig lights. Negative values are treated as zero.
	KeyIntensity     float64
	FillIntensity    float64
	RimIntensity     float64
	AmbientIntensity float64
}

// DefaultOptions returns the studio setup used for listing renders.
func DefaultOptions() Options {
	return Options{
		BackgroundHex:    "#F2F3F5",
		FallbackHex:      "#8C9BAB",
		SmoothAngleDeg:   30,
		GroundScale:      6,
		ShadowStrength:   0.35,
		KeyIntensity:     0.95,
		FillIntensity:    0.35,
		RimIntensity:     0.5,
		AmbientIntensity: 0.28,
	}
}

// Shadow is the analytic contact shadow the ground shader evaluates: an
// ellipse in the ground plane, darkest at the center.
type Shadow struct {
	Center   fauxgl.Vector
	RadiusX  float64
	RadiusZ  float64
	Strength float64
}

// Scene is one composed studio. It lives for a single render invocation;
// Release drops the geometry references and is safe to call more than once.
type Scene struct {
	// Model is the centered, upright triangle mesh with per-vertex colors
	// resolved.
	Model *fauxgl.Mesh
	// Ground is the shadow catcher under the model.
	Ground *fauxgl.Mesh
	// Bounds is the model bounding box after centering and uprighting.
	Bounds vec3.Box
	// Radius is the bounding sphere radius used for camera fitting.
	Radius float64
	// GroundY is the catcher plane height, just below the model's lowest
	// point.
	GroundY    float64
	Lights     Rig
	Shadow     Shadow
	Background fauxgl.Color
}

// Release drops the mesh references so the rasterizer data can be
// collected. Idempotent.
func (s *Scene) Release() {
	s.Model = nil
	s.Ground = nil
}

// Compose builds the studio scene around g. The mesh is translated so its
// bounding box center sits at the origin and rotated by an exact 90 degree
// axis permutation so the largest extent lies along +Y. Vertex colors are
// kept; vertices with no recorded color get the fallback studio color.
func Compose(g *mesh.Geometry, opts Options) (*Scene, error) {
	opts = withDefaults(opts)
	if len(g.Vertices) == 0 || len(g.Triangles) == 0 {
		return nil, &mesh.DegenerateError{
			Reason:    "nothing to compose",
			Vertices:  len(g.Vertices),
			Triangles: len(g.Triangles),
		}
	}
	bounds := g.Bounds()
	size := vec3.Sub(&bounds.Max, &bounds.Min)
	if size[0] == 0 && size[1] == 0 && size[2] == 0 {
		return nil, &mesh.DegenerateError{
			Reason:    "no spatial extent",
			Vertices:  len(g.Vertices),
			Triangles: len(g.Triangles),
		}
	}

	perm := uprightPermutation(size)
	center := vec3.T{
		(bounds.Min[0] + bounds.Max[0]) / 2,
		(bounds.Min[1] + bounds.Max[1]) / 2,
		(bounds.Min[2] + bounds.Max[2]) / 2,
	}

	placed := vec3.MinBox
	positions := make([]fauxgl.Vector, len(g.Vertices))
	for i, v := range g.Vertices {
		shifted := vec3.Sub(&v, &center)
		p := perm(shifted)
		placed.Extend(&p)
		positions[i] = fauxgl.V(p[0], p[1], p[2])
	}

	fallback := fauxgl.HexColor(opts.FallbackHex)
	colors := make([]fauxgl.Color, len(g.Vertices))
	for i := range colors {
		colors[i] = fallback
		if g.HasColors() {
			if c := g.Colors[i]; c.A != 0 {
				colors[i] = fauxgl.Color{
					R: float64(c.R) / 255,
					G: float64(c.G) / 255,
					B: float64(c.B) / 255,
					A: 1,
				}
			}
		}
	}

	triangles := make([]*fauxgl.Triangle, 0, len(g.Triangles))
	for _, tri := range g.Triangles {
		triangles = append(triangles, fauxgl.NewTriangle(
			fauxgl.Vertex{Position: positions[tri[0]], Color: colors[tri[0]]},
			fauxgl.Vertex{Position: positions[tri[1]], Color: colors[tri[1]]},
			fauxgl.Vertex{Position: positions[tri[2]], Color: colors[tri[2]]},
		))
	}
	model := fauxgl.NewTriangleMesh(triangles)
	model.SmoothNormalsThreshold(fauxgl.Radians(opts.SmoothAngleDeg))

	placedSize := vec3.Sub(&placed.Max, &placed.Min)
	radius := placedSize.Length() / 2
	groundY := placed.Min[1] - radius*groundDropFrac

	scene := &Scene{
		Model:      model,
		Bounds:     placed,
		Radius:     radius,
		GroundY:    groundY,
		Lights:     DefaultRig(opts),
		Background: fauxgl.HexColor(opts.BackgroundHex),
	}
	scene.Ground = groundQuad(groundY, radius*opts.GroundScale)
	scene.Shadow = contactShadow(scene.Lights.Key.Direction, placedSize, radius, opts.ShadowStrength)
	return scene, nil
}

// uprightPermutation picks the exact axis swap that brings the largest
// extent onto +Y. Swaps and negations only, so coordinates never pick up
// rounding error. Ties keep Y, then prefer X.
func uprightPermutation(size vec3.T) func(vec3.T) vec3.T {
	switch {
	case size[1] >= size[0] && size[1] >= size[2]:
		return func(p vec3.T) vec3.T { return p }
	case size[0] >= size[2]:
		// Rotate 90 degrees about Z: X becomes the vertical axis.
		return func(p vec3.T) vec3.T { return vec3.T{-p[1], p[0], p[2]} }
	default:
		// Rotate 90 degrees about X: Z becomes the vertical axis.
		return func(p vec3.T) vec3.T { return vec3.T{p[0], -p[2], p[1]} }
	}
}

// groundQuad builds the shadow catcher, a quad of half-extent s at height y
// with its normal up.
func groundQuad(y, s float64) *fauxgl.Mesh {
	a := fauxgl.V(-s, y, -s)
	b := fauxgl.V(-s, y, s)
	c := fauxgl.V(s, y, s)
	d := fauxgl.V(s, y, -s)
	return fauxgl.NewTriangleMesh([]*fauxgl.Triangle{
		fauxgl.NewTriangleForPoints(a, b, c),
		fauxgl.NewTriangleForPoints(a, c, d),
	})
}

// contactShadow sizes the shadow ellipse from the model footprint and
// slides it away from the key light.
func contactShadow(key fauxgl.Vector, size vec3.T, radius, strength float64) Shadow {
	feather := radius * shadowFeatherFrac
	shadow := Shadow{
		RadiusX:  size[0]/2*shadowSpread + feather,
		RadiusZ:  size[2]/2*shadowSpread + feather,
		Strength: strength,
	}
	horizontal := fauxgl.V(-key.X, 0, -key.Z)
	if horizontal.Length() > 0 {
		shadow.Center = horizontal.Normalize().MulScalar(radius * shadowOffsetFrac)
	}
	return shadow
}

// withDefaults maps the zero Options to DefaultOptions and sanitizes the
// rest. Explicit zero intensities stay zero so a light can be turned off.
func withDefaults(opts Options) Options {
	if opts == (Options{}) {
		return DefaultOptions()
	}
	def := DefaultOptions()
	if opts.BackgroundHex == "" {
		opts.BackgroundHex = def.BackgroundHex
	}
	if opts.FallbackHex == "" {
		opts.FallbackHex = def.FallbackHex
	}
	if opts.SmoothAngleDeg <= 0 {
		opts.SmoothAngleDeg = def.SmoothAngleDeg
	}
	if opts.GroundScale <= 0 {
		opts.GroundScale = def.GroundScale
	}
	if opts.ShadowStrength < 0 {
		opts.ShadowStrength = 0
	}
	if opts.ShadowStrength > 1 {
		opts.ShadowStrength = 1
	}
	for _, p := range []*float64{&opts.KeyIntensity, &opts.FillIntensity, &opts.RimIntensity, &opts.AmbientIntensity} {
		if *p < 0 {
			*p = 0
		}
	}
	return opts
}
