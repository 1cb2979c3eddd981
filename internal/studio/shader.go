package studio

import (
	"math"

	"github.com/fogleman/fauxgl"
)

// StudioShader lights the model: hemisphere ambient plus lambert terms for
// the rig, a Blinn-Phong highlight on the key light, and a view-dependent
// rim gated to surfaces facing the rim light. Pure float64, no state, so
// renders are deterministic.
type StudioShader struct {
	Matrix         fauxgl.Matrix
	CameraPosition fauxgl.Vector
	Rig            Rig
	SpecularColor  fauxgl.Color
	SpecularPower  float64
}

// NewStudioShader builds the model shader for one view.
func NewStudioShader(matrix fauxgl.Matrix, camera fauxgl.Vector, rig Rig) *StudioShader {
	return &StudioShader{
		Matrix:         matrix,
		CameraPosition: camera,
		Rig:            rig,
		SpecularColor:  fauxgl.Gray(0.4),
		SpecularPower:  48,
	}
}

func (s *StudioShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.Matrix.MulPositionW(v.Position)
	return v
}

func (s *StudioShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	n := v.Normal.Normalize()
	base := v.Color

	sky := (n.Y + 1) / 2
	light := s.Rig.Ambient.Ground.Lerp(s.Rig.Ambient.Sky, sky).MulScalar(s.Rig.Ambient.Intensity)
	light = light.Add(lambert(s.Rig.Key, n))
	light = light.Add(lambert(s.Rig.Fill, n))
	color := base.Mul(light)

	view := s.CameraPosition.Sub(v.Position).Normalize()
	if s.SpecularPower > 0 && n.Dot(s.Rig.Key.Direction) > 0 {
		half := view.Add(s.Rig.Key.Direction).Normalize()
		spec := math.Pow(math.Max(n.Dot(half), 0), s.SpecularPower)
		color = color.Add(s.SpecularColor.MulScalar(spec * s.Rig.Key.Intensity))
	}
	if toward := n.Dot(s.Rig.Rim.Direction); toward > 0 {
		fresnel := math.Pow(1-clamp01(n.Dot(view)), 3)
		color = color.Add(s.Rig.Rim.Color.MulScalar(fresnel * toward * s.Rig.Rim.Intensity))
	}
	return color.Min(fauxgl.White).Alpha(base.A)
}

// GroundShader paints the catcher quad the backdrop color with an analytic
// elliptical contact shadow, darkest at the ellipse center and smoothstepped
// to nothing at its edge.
type GroundShader struct {
	Matrix      fauxgl.Matrix
	Color       fauxgl.Color
	ShadowColor fauxgl.Color
	Shadow      Shadow
}

// NewGroundShader builds the ground shader for one view.
func NewGroundShader(matrix fauxgl.Matrix, background fauxgl.Color, shadow Shadow) *GroundShader {
	return &GroundShader{
		Matrix:      matrix,
		Color:       background,
		ShadowColor: fauxgl.HexColor("#1A1A20"),
		Shadow:      shadow,
	}
}

func (s *GroundShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.Matrix.MulPositionW(v.Position)
	return v
}

func (s *GroundShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	if s.Shadow.RadiusX <= 0 || s.Shadow.RadiusZ <= 0 || s.Shadow.Strength <= 0 {
		return s.Color
	}
	dx := (v.Position.X - s.Shadow.Center.X) / s.Shadow.RadiusX
	dz := (v.Position.Z - s.Shadow.Center.Z) / s.Shadow.RadiusZ
	d := math.Sqrt(dx*dx + dz*dz)
	if d >= 1 {
		return s.Color
	}
	shade := s.Shadow.Strength * (1 - smoothstep(0, 1, d))
	return s.Color.Lerp(s.ShadowColor, shade)
}

func lambert(l Light, n fauxgl.Vector) fauxgl.Color {
	d := n.Dot(l.Direction)
	if d <= 0 || l.Intensity <= 0 {
		return fauxgl.Color{}
	}
	return l.Color.MulScalar(d * l.Intensity)
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
