// Package metrology derives physical measurements from geometry: bounding
// box, canonical print dimensions, enclosed volume, and the resolved weight
// with its provenance.
package metrology

import (
	"math"
	"sort"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/mesh"
)

// Provenance records how the reported weight was obtained. These strings are
// part of the output contract.
type Provenance string

const (
	// ProvenanceEmbedded means a slicer wrote the weight into the container.
	ProvenanceEmbedded Provenance = "embedded-metadata"
	// ProvenanceVolumetric means the weight is enclosed volume times the
	// configured material density.
	ProvenanceVolumetric Provenance = "volumetric-estimate"
	// ProvenanceUnavailable means no trustworthy weight could be produced.
	ProvenanceUnavailable Provenance = "unavailable"
)

// Dimensions are the canonical print dimensions in millimeters: the largest
// extent reports as height, the middle as width, the smallest as depth, no
// matter how the mesh was oriented on disk.
type Dimensions struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	DepthMM  float64 `json:"depth_mm"`
}

// defaultDensityGramsPerCm3 is PLA, the overwhelmingly common case for
// hobbyist listings.
const defaultDensityGramsPerCm3 = 1.24

// Options tunes measurement.
type Options struct {
	// DensityGramsPerCm3 is the material density for volumetric estimates.
	// Zero or negative falls back to the PLA default.
	DensityGramsPerCm3 float64
}

// DefaultOptions returns the PLA defaults.
func DefaultOptions() Options {
	return Options{DensityGramsPerCm3: defaultDensityGramsPerCm3}
}

// Report is the measurement result. WeightKG is nil when Provenance is
// ProvenanceUnavailable; everything else is always set.
type Report struct {
	Bounds     vec3.Box
	Dimensions Dimensions
	// VolumeMM3 is the absolute enclosed volume by signed tetrahedron
	// integration. Only meaningful when Watertight.
	VolumeMM3 float64
	// Watertight reports whether every edge is shared by exactly two
	// consistently wound triangles.
	Watertight bool
	WeightKG   *float64
	Provenance Provenance
	// WeightNote explains the provenance for logs, such as why no weight
	// was available.
	WeightNote string
}

// Measure computes the report for a decoded geometry. embeddedGrams, when
// non-nil, is a slicer-recorded weight and wins over any estimate. Geometry
// without triangles or without spatial extent returns mesh.DegenerateError;
// a missing weight is not an error.
func Measure(g *mesh.Geometry, embeddedGrams *float64, opts Options) (*Report, error) {
	if len(g.Vertices) == 0 || len(g.Triangles) == 0 {
		return nil, &mesh.DegenerateError{
			Reason:    "no triangles to measure",
			Vertices:  len(g.Vertices),
			Triangles: len(g.Triangles),
		}
	}
	bounds := g.Bounds()
	ex, ey, ez := bounds.Max[0]-bounds.Min[0], bounds.Max[1]-bounds.Min[1], bounds.Max[2]-bounds.Min[2]
	if ex == 0 && ey == 0 && ez == 0 {
		return nil, &mesh.DegenerateError{
			Reason:    "no spatial extent",
			Vertices:  len(g.Vertices),
			Triangles: len(g.Triangles),
		}
	}

	r := &Report{
		Bounds:     bounds,
		Dimensions: Canonicalize(ex, ey, ez),
	}
	tris, positions := canonicalize(g)
	r.VolumeMM3 = enclosedVolume(tris, positions)
	r.Watertight = isWatertight(tris)
	resolveWeight(r, embeddedGrams, opts)
	return r, nil
}

// Canonicalize sorts raw axis extents into the height >= width >= depth
// labeling of the dimensions contract.
func Canonicalize(ex, ey, ez float64) Dimensions {
	e := []float64{ex, ey, ez}
	sort.Sort(sort.Reverse(sort.Float64Slice(e)))
	return Dimensions{HeightMM: e[0], WidthMM: e[1], DepthMM: e[2]}
}

func resolveWeight(r *Report, embeddedGrams *float64, opts Options) {
	if embeddedGrams != nil && *embeddedGrams > 0 {
		kg := *embeddedGrams / 1000
		r.WeightKG = &kg
		r.Provenance = ProvenanceEmbedded
		r.WeightNote = "weight recorded in container metadata"
		return
	}
	if !r.Watertight {
		r.Provenance = ProvenanceUnavailable
		r.WeightNote = "mesh is not watertight, volume untrustworthy"
		return
	}
	if r.VolumeMM3 <= 0 {
		r.Provenance = ProvenanceUnavailable
		r.WeightNote = "zero enclosed volume"
		return
	}
	density := opts.DensityGramsPerCm3
	if density <= 0 {
		density = defaultDensityGramsPerCm3
	}
	// g/cm3 over the mm3 volume: 1 cm3 is 1000 mm3, and grams to
	// kilograms is another factor of 1000.
	kg := r.VolumeMM3 * density / 1e6
	r.WeightKG = &kg
	r.Provenance = ProvenanceVolumetric
}

// canonicalize remaps triangle indices so vertices at identical coordinates
// share one index, and returns the deduplicated position table. Decoding can
// split vertices to keep per-corner colors; volume and manifold analysis
// must see positions, not the color topology.
func canonicalize(g *mesh.Geometry) ([][3]uint32, []vec3.T) {
	remap := make(map[vec3.T]uint32, len(g.Vertices))
	index := make([]uint32, len(g.Vertices))
	positions := make([]vec3.T, 0, len(g.Vertices))
	for i := range g.Vertices {
		idx, ok := remap[g.Vertices[i]]
		if !ok {
			idx = uint32(len(positions))
			remap[g.Vertices[i]] = idx
			positions = append(positions, g.Vertices[i])
		}
		index[i] = idx
	}
	tris := make([][3]uint32, len(g.Triangles))
	for i, t := range g.Triangles {
		tris[i] = [3]uint32{index[t[0]], index[t[1]], index[t[2]]}
	}
	return tris, positions
}

// enclosedVolume integrates signed tetrahedron volumes against the origin
// and returns the absolute total, so consistently inward winding reports the
// same volume as outward.
func enclosedVolume(tris [][3]uint32, positions []vec3.T) float64 {
	var total float64
	for _, t := range tris {
		v0, v1, v2 := positions[t[0]], positions[t[1]], positions[t[2]]
		cross := vec3.Cross(&v1, &v2)
		total += vec3.Dot(&v0, &cross)
	}
	return math.Abs(total / 6)
}

// isWatertight checks that every directed edge appears exactly once and its
// reverse exactly once: each undirected edge shared by two triangles with
// opposite orientation.
func isWatertight(tris [][3]uint32) bool {
	edges := make(map[[2]uint32]int, len(tris)*3)
	for _, t := range tris {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			return false
		}
		edges[[2]uint32{t[0], t[1]}]++
		edges[[2]uint32{t[1], t[2]}]++
		edges[[2]uint32{t[2], t[0]}]++
	}
	for e, n := range edges {
		if n != 1 || edges[[2]uint32{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}
