package metrology

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/mesh"
	"print-studio/internal/primitives"
)

func TestMeasureCube(t *testing.T) {
	t.Parallel()

	r, err := Measure(primitives.Cube(10), nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, Dimensions{WidthMM: 10, HeightMM: 10, DepthMM: 10}, r.Dimensions)
	assert.InDelta(t, 1000, r.VolumeMM3, 1e-9)
	assert.True(t, r.Watertight)

	require.NotNil(t, r.WeightKG)
	assert.InDelta(t, 1000*1.24/1e6, *r.WeightKG, 1e-12)
	assert.Equal(t, ProvenanceVolumetric, r.Provenance)
}

func TestMeasureCanonicalOrientation(t *testing.T) {
	t.Parallel()

	// The long axis lies along X on disk; the report must still call it
	// height.
	r, err := Measure(primitives.Box(40, 10, 4), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Dimensions{WidthMM: 10, HeightMM: 40, DepthMM: 4}, r.Dimensions)
}

func TestMeasureCylinderVolumeExact(t *testing.T) {
	t.Parallel()

	const slices = 32
	g := primitives.Cylinder(5, 20, slices)
	r, err := Measure(g, nil, DefaultOptions())
	require.NoError(t, err)

	faceted := float64(slices) / 2 * 25 * math.Sin(2*math.Pi/slices) * 20
	assert.InEpsilon(t, faceted, r.VolumeMM3, 1e-9)
	assert.True(t, r.Watertight)
}

func TestMeasureSphereVolumeClose(t *testing.T) {
	t.Parallel()

	r, err := Measure(primitives.Sphere(10, 24, 24), nil, DefaultOptions())
	require.NoError(t, err)

	ideal := 4.0 / 3.0 * math.Pi * 1000
	assert.Less(t, r.VolumeMM3, ideal, "faceted volume is inscribed")
	assert.InEpsilon(t, ideal, r.VolumeMM3, 0.05)
}

func TestMeasureEmbeddedWeightWins(t *testing.T) {
	t.Parallel()

	grams := 42.0
	r, err := Measure(primitives.Cube(10), &grams, DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, r.WeightKG)
	assert.Equal(t, 0.042, *r.WeightKG)
	assert.Equal(t, ProvenanceEmbedded, r.Provenance)
}

func openQuad() *mesh.Geometry {
	return &mesh.Geometry{
		Vertices: []vec3.T{
			{0, 0, 0}, {10, 0, 0}, {10, 5, 1}, {0, 5, 1},
		},
		Triangles: [][3]uint32{{0, 1, 2}, {0, 2, 3}},
	}
}

func TestMeasureOpenMeshHasNoEstimate(t *testing.T) {
	t.Parallel()

	r, err := Measure(openQuad(), nil, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, r.Watertight)
	assert.Nil(t, r.WeightKG)
	assert.Equal(t, ProvenanceUnavailable, r.Provenance)
	assert.NotEmpty(t, r.WeightNote)
	assert.Equal(t, 10.0, r.Dimensions.HeightMM, "dimensions still reported")
}

func TestMeasureOpenMeshEmbeddedWeightStillWins(t *testing.T) {
	t.Parallel()

	grams := 7.5
	r, err := Measure(openQuad(), &grams, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, r.WeightKG)
	assert.Equal(t, ProvenanceEmbedded, r.Provenance)
}

func TestMeasureRejectsEmptyGeometry(t *testing.T) {
	t.Parallel()

	_, err := Measure(&mesh.Geometry{}, nil, DefaultOptions())
	var derr *mesh.DegenerateError
	require.ErrorAs(t, err, &derr)
}

func TestMeasureRejectsZeroExtent(t *testing.T) {
	t.Parallel()

	g := &mesh.Geometry{
		Vertices:  []vec3.T{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
		Triangles: [][3]uint32{{0, 1, 2}},
	}
	_, err := Measure(g, nil, DefaultOptions())
	var derr *mesh.DegenerateError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Reason, "extent")
}

func TestMeasureReversedWindingSameVolume(t *testing.T) {
	t.Parallel()

	g := primitives.Cube(10)
	for i, tri := range g.Triangles {
		g.Triangles[i] = [3]uint32{tri[2], tri[1], tri[0]}
	}
	r, err := Measure(g, nil, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1000, r.VolumeMM3, 1e-9)
	assert.True(t, r.Watertight, "consistent reversed winding still pairs edges")
}

func TestMeasureSurvivesColorSplitVertices(t *testing.T) {
	t.Parallel()

	// Simulate the decoder duplicating a vertex for color: same position,
	// new index. Position canonicalization keeps the mesh watertight.
	g := primitives.Cube(10)
	dup := g.Vertices[g.Triangles[0][0]]
	g.Vertices = append(g.Vertices, dup)
	g.Triangles[0][0] = uint32(len(g.Vertices) - 1)

	r, err := Measure(g, nil, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Watertight)
	assert.InDelta(t, 1000, r.VolumeMM3, 1e-9)
}

func TestMeasureDensityOption(t *testing.T) {
	t.Parallel()

	r, err := Measure(primitives.Cube(10), nil, Options{DensityGramsPerCm3: 8.96})
	require.NoError(t, err)
	require.NotNil(t, r.WeightKG)
	assert.InDelta(t, 1000*8.96/1e6, *r.WeightKG, 1e-12)

	// Zero density falls back to the PLA default rather than reporting
	// weightless parts.
	r, err = Measure(primitives.Cube(10), nil, Options{})
	require.NoError(t, err)
	require.NotNil(t, r.WeightKG)
	assert.InDelta(t, 1000*1.24/1e6, *r.WeightKG, 1e-12)
}

func TestCanonicalizeProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ex := rapid.Float64Range(0.001, 5000).Draw(t, "ex")
		ey := rapid.Float64Range(0.001, 5000).Draw(t, "ey")
		ez := rapid.Float64Range(0.001, 5000).Draw(t, "ez")

		d := Canonicalize(ex, ey, ez)
		if d.HeightMM < d.WidthMM || d.WidthMM < d.DepthMM {
			t.Fatalf("ordering violated: %+v", d)
		}
		got := []float64{d.HeightMM, d.WidthMM, d.DepthMM}
		want := []float64{ex, ey, ez}
		for _, w := range want {
			found := false
			for i, g := range got {
				if g == w {
					got = append(got[:i], got[i+1:]...)
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("extent %v lost in canonicalization", w)
			}
		}
	})
}
