package studio

import (
	"testing"

	"github.com/fogleman/fauxgl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func luminance(c fauxgl.Color) float64 {
	return c.R + c.G + c.B
}

func TestStudioShaderKeySideIsBrighter(t *testing.T) {
	t.Parallel()

	rig := DefaultRig(DefaultOptions())
	shader := NewStudioShader(fauxgl.Identity(), fauxgl.V(0, 0, 100), rig)
	base := fauxgl.Gray(0.7)

	lit := shader.Fragment(fauxgl.Vertex{
		Position: fauxgl.V(0, 0, 0),
		Normal:   rig.Key.Direction,
		Color:    base,
	})
	shaded := shader.Fragment(fauxgl.Vertex{
		Position: fauxgl.V(0, 0, 0),
		Normal:   rig.Key.Direction.Negate(),
		Color:    base,
	})
	assert.Greater(t, luminance(lit), luminance(shaded))
}

func TestStudioShaderClampsToWhite(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.KeyIntensity = 50
	opts.AmbientIntensity = 50
	rig := DefaultRig(opts)
	shader := NewStudioShader(fauxgl.Identity(), fauxgl.V(0, 0, 100), rig)

	out := shader.Fragment(fauxgl.Vertex{
		Position: fauxgl.V(0, 0, 0),
		Normal:   rig.Key.Direction,
		Color:    fauxgl.White,
	})
	assert.LessOrEqual(t, out.R, 1.0)
	assert.LessOrEqual(t, out.G, 1.0)
	assert.LessOrEqual(t, out.B, 1.0)
}

func TestStudioShaderKeepsBaseAlpha(t *testing.T) {
	t.Parallel()

	rig := DefaultRig(DefaultOptions())
	shader := NewStudioShader(fauxgl.Identity(), fauxgl.V(0, 0, 100), rig)
	out := shader.Fragment(fauxgl.Vertex{
		Position: fauxgl.V(0, 0, 0),
		Normal:   fauxgl.V(0, 1, 0),
		Color:    fauxgl.Color{R: 0.5, G: 0.5, B: 0.5, A: 1},
	})
	assert.Equal(t, 1.0, out.A)
}

func TestGroundShaderShadowProfile(t *testing.T) {
	t.Parallel()

	background := fauxgl.HexColor("#F2F3F5")
	shadow := Shadow{RadiusX: 10, RadiusZ: 10, Strength: 0.4}
	shader := NewGroundShader(fauxgl.Identity(), background, shadow)

	at := func(x, z float64) fauxgl.Color {
		return shader.Fragment(fauxgl.Vertex{Position: fauxgl.V(x, 0, z)})
	}

	center := at(0, 0)
	mid := at(5, 0)
	edge := at(10, 0)
	far := at(50, 50)

	require.Equal(t, background, far)
	assert.Equal(t, background, edge)
	assert.Less(t, luminance(center), luminance(mid))
	assert.Less(t, luminance(mid), luminance(background))
}

func TestGroundShaderZeroStrengthIsInvisible(t *testing.T) {
	t.Parallel()

	background := fauxgl.Gray(0.9)
	shader := NewGroundShader(fauxgl.Identity(), background, Shadow{RadiusX: 10, RadiusZ: 10})
	out := shader.Fragment(fauxgl.Vertex{Position: fauxgl.V(0, 0, 0)})
	assert.Equal(t, background, out)
}

func TestSmoothstepEnds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, smoothstep(0, 1, -1))
	assert.Equal(t, 0.0, smoothstep(0, 1, 0))
	assert.Equal(t, 1.0, smoothstep(0, 1, 1))
	assert.Equal(t, 1.0, smoothstep(0, 1, 2))
	assert.InDelta(t, 0.5, smoothstep(0, 1, 0.5), 1e-12)
}
