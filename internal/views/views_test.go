package views

import (
	"math"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func unitBox() vec3.Box {
	return vec3.Box{Min: vec3.T{-1, -1, -1}, Max: vec3.T{1, 1, 1}}
}

func TestDefaultPlanShape(t *testing.T) {
	t.Parallel()

	specs := Plan(unitBox(), DefaultOptions())
	require.Len(t, specs, 14)

	want := []string{
		"front", "front-right", "right", "back-right",
		"back", "back-left", "left", "front-left",
		"iso-front-right", "iso-back-right", "iso-back-left", "iso-front-left",
		"top", "bottom",
	}
	for i, spec := range specs {
		assert.Equal(t, want[i], spec.Name)
		assert.Equal(t, 1.0, spec.Zoom)
	}
}

func TestFrontFacesPositiveZ(t *testing.T) {
	t.Parallel()

	specs := Plan(unitBox(), DefaultOptions())
	front := specs[0]
	require.Equal(t, "front", front.Name)
	assert.InDelta(t, 0, front.Position[0], 1e-12)
	assert.Greater(t, front.Position[2], 0.0)

	right := specs[2]
	require.Equal(t, "right", right.Name)
	assert.Greater(t, right.Position[0], 0.0)
	assert.InDelta(t, 0, right.Position[2], 1e-9)
}

func TestEyeDistanceFitsBoundingSphere(t *testing.T) {
	t.Parallel()

	box := vec3.Box{Min: vec3.T{-10, -20, -30}, Max: vec3.T{10, 20, 30}}
	size := vec3.Sub(&box.Max, &box.Min)
	radius := size.Length() / 2
	opts := DefaultOptions()
	want := radius * opts.Margin / math.Sin(opts.FOVDeg*math.Pi/360)

	for _, spec := range Plan(box, opts) {
		assert.InEpsilon(t, want, spec.Position.Length(), 1e-12, spec.Name)
	}
}

func TestTopAndBottomLookAlongY(t *testing.T) {
	t.Parallel()

	specs := Plan(unitBox(), DefaultOptions())
	top, bottom := specs[12], specs[13]

	require.Equal(t, "top", top.Name)
	assert.Greater(t, top.Position[1], 0.0)
	assert.Equal(t, vec3.T{0, 0, -1}, top.Up)

	require.Equal(t, "bottom", bottom.Name)
	assert.Less(t, bottom.Position[1], 0.0)
	assert.Equal(t, vec3.T{0, 0, -1}, bottom.Up)
}

func TestIsometricElevation(t *testing.T) {
	t.Parallel()

	specs := Plan(unitBox(), DefaultOptions())
	wantSin := math.Sin(math.Atan(1 / math.Sqrt2))
	for _, spec := range specs[8:12] {
		got := spec.Position[1] / spec.Position.Length()
		assert.InEpsilon(t, wantSin, got, 1e-12, spec.Name)
	}
}

func TestNonCanonicalRingCountUsesNumberedNames(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.RingCount = 6
	opts.IncludeIsometric = false
	opts.IncludeTopBottom = false

	specs := Plan(unitBox(), opts)
	require.Len(t, specs, 6)
	assert.Equal(t, "ring-00", specs[0].Name)
	assert.Equal(t, "ring-05", specs[5].Name)
}

func TestOptionClamping(t *testing.T) {
	t.Parallel()

	opts := Options{RingCount: -3, RingElevationDeg: 200, FOVDeg: 1, Margin: 99}
	specs := Plan(unitBox(), opts)
	require.Len(t, specs, 8)

	// Elevation pinned to 80 degrees, not 200.
	sin := specs[0].Position[1] / specs[0].Position.Length()
	assert.InEpsilon(t, math.Sin(80*math.Pi/180), sin, 1e-12)
}

func TestDegenerateBoxStillPlans(t *testing.T) {
	t.Parallel()

	var b vec3.Box
	specs := Plan(b, DefaultOptions())
	require.Len(t, specs, 14)
	for _, spec := range specs {
		assert.False(t, math.IsNaN(spec.Position.Length()), spec.Name)
		assert.Greater(t, spec.Position.Length(), 0.0, spec.Name)
	}
}

func TestPlanIsBitDeterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		min := vec3.T{
			rapid.Float64Range(-1e3, 1e3).Draw(t, "minX"),
			rapid.Float64Range(-1e3, 1e3).Draw(t, "minY"),
			rapid.Float64Range(-1e3, 1e3).Draw(t, "minZ"),
		}
		span := vec3.T{
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanX"),
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanY"),
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanZ"),
		}
		box := vec3.Box{Min: min, Max: vec3.Add(&min, &span)}

		first := Plan(box, DefaultOptions())
		second := Plan(box, DefaultOptions())
		if len(first) != len(second) {
			t.Fatalf("plan lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("view %d differs between runs: %+v vs %+v", i, first[i], second[i])
			}
		}
	})
}

func TestPlanIgnoresBoxPosition(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		span := vec3.T{
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanX"),
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanY"),
			rapid.Float64Range(0.001, 1e3).Draw(t, "spanZ"),
		}
		shift := rapid.Float64Range(-1e4, 1e4).Draw(t, "shift")

		origin := vec3.Box{Min: vec3.T{}, Max: span}
		moved := vec3.Box{
			Min: vec3.T{shift, shift, shift},
			Max: vec3.T{shift + span[0], shift + span[1], shift + span[2]},
		}

		first := Plan(origin, DefaultOptions())
		second := Plan(moved, DefaultOptions())
		for i := range first {
			if first[i].Name != second[i].Name || first[i].Up != second[i].Up {
				t.Fatalf("view %d changed when box moved: %+v vs %+v", i, first[i], second[i])
			}
			// Shifted extents round differently, so compare with a
			// relative tolerance rather than bit for bit.
			for axis := 0; axis < 3; axis++ {
				a, b := first[i].Position[axis], second[i].Position[axis]
				if math.Abs(a-b) > 1e-6*(1+math.Abs(a)) {
					t.Fatalf("view %d axis %d moved: %g vs %g", i, axis, a, b)
				}
			}
		}
	})
}
