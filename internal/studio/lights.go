package studio

import "github.com/fogleman/fauxgl"

// Light is one directional studio light. Direction points from the surface
// toward the light and is unit length.
type Light struct {
	Direction fauxgl.Vector
	Color     fauxgl.Color
	Intensity float64
}

// Hemisphere is the ambient term: sky color from above blending into ground
// color from below.
type Hemisphere struct {
	Sky       fauxgl.Color
	Ground    fauxgl.Color
	Intensity float64
}

// Rig is the full three-point setup. Key drives the contact shadow and the
// specular highlight, fill lifts the dark side, rim separates the
// silhouette from the backdrop.
type Rig struct {
	Key     Light
	Fill    Light
	Rim     Light
	Ambient Hemisphere
}

// DefaultRig places the lights around the front camera axis (+Z): key high
// front-right and warm, fill low front-left and cool, rim behind and above.
// Intensities come from opts.
func DefaultRig(opts Options) Rig {
	return Rig{
		Key: Light{
			Direction: fauxgl.V(0.5, 1, 0.6).Normalize(),
			Color:     fauxgl.HexColor("#FFF4E5"),
			Intensity: opts.KeyIntensity,
		},
		Fill: Light{
			Direction: fauxgl.V(-0.8, 0.25, 0.4).Normalize(),
			Color:     fauxgl.HexColor("#DCE6F5"),
			Intensity: opts.FillIntensity,
		},
		Rim: Light{
			Direction: fauxgl.V(-0.2, 0.6, -1).Normalize(),
			Color:     fauxgl.HexColor("#FFFFFF"),
			Intensity: opts.RimIntensity,
		},
		Ambient: Hemisphere{
			Sky:       fauxgl.HexColor("#DDE6F0"),
			Ground:    fauxgl.HexColor("#B9B2A6"),
			Intensity: opts.AmbientIntensity,
		},
	}
}
