package mesh

import (
	"image/color"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad() *Geometry {
	return &Geometry{
		Vertices: []vec3.T{
			{0, 0, 0},
			{10, 0, 0},
			{10, 5, 0},
			{0, 5, 0},
		},
		Triangles: [][3]uint32{{0, 1, 2}, {0, 2, 3}},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	g := quad()
	require.NoError(t, g.Validate())

	g.Triangles = append(g.Triangles, [3]uint32{0, 1, 9})
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references vertex 9")
}

func TestValidateColorCoverage(t *testing.T) {
	t.Parallel()

	g := quad()
	g.Colors = []color.RGBA{{R: 255, A: 255}}
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color channel")

	g.Colors = make([]color.RGBA, len(g.Vertices))
	require.NoError(t, g.Validate())
}

func TestBounds(t *testing.T) {
	t.Parallel()

	b := quad().Bounds()
	assert.Equal(t, vec3.T{0, 0, 0}, b.Min)
	assert.Equal(t, vec3.T{10, 5, 0}, b.Max)
}

func TestMergeOffsetsIndices(t *testing.T) {
	t.Parallel()

	a := quad()
	b := quad()
	a.Merge(b)

	require.Len(t, a.Vertices, 8)
	require.Len(t, a.Triangles, 4)
	assert.Equal(t, [3]uint32{4, 5, 6}, a.Triangles[2])
	require.NoError(t, a.Validate())
}

func TestMergePadsMissingColors(t *testing.T) {
	t.Parallel()

	a := quad()
	b := quad()
	b.Colors = []color.RGBA{
		{R: 200, A: 255}, {R: 200, A: 255}, {R: 200, A: 255}, {R: 200, A: 255},
	}
	a.Merge(b)

	require.Len(t, a.Colors, 8)
	assert.Equal(t, uint8(0), a.Colors[0].A, "uncolored side keeps zero alpha")
	assert.Equal(t, uint8(255), a.Colors[4].A)
	require.NoError(t, a.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	a := quad()
	a.Colors = make([]color.RGBA, len(a.Vertices))
	b := a.Clone()
	b.Vertices[0][0] = 99
	b.Colors[0].R = 99

	assert.Equal(t, 0.0, a.Vertices[0][0])
	assert.Equal(t, uint8(0), a.Colors[0].R)
}

func TestDegenerateErrorMessage(t *testing.T) {
	t.Parallel()

	err := &DegenerateError{Reason: "no triangles", Vertices: 3, Triangles: 0}
	assert.Contains(t, err.Error(), "no triangles")
	assert.Contains(t, err.Error(), "3 vertices")
}
