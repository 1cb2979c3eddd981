// Package mesh holds the renderer-agnostic triangle geometry shared by the
// decoding, metrology, and rendering stages.
package mesh

import (
	"fmt"
	"image/color"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// Geometry is an indexed triangle soup. Coordinates are millimeters.
// Colors is either empty or holds exactly one RGBA value per vertex; an
// entry with zero alpha means no color was recorded for that vertex and a
// fallback material is applied at scene-composition time.
type Geometry struct {
	Vertices  []vec3.T
	Triangles [][3]uint32
	Colors    []color.RGBA
}

// DegenerateError reports geometry that cannot support measurement or
// rendering, such as an empty triangle list or a shape with no spatial
// extent.
type DegenerateError struct {
	Reason    string
	Vertices  int
	Triangles int
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("mesh: degenerate geometry: %s (%d vertices, %d triangles)",
		e.Reason, e.Vertices, e.Triangles)
}

// NewGeometry returns an empty geometry with capacity hints for the decoder
// hot path. Negative hints are treated as zero.
func NewGeometry(vertexHint, triangleHint int) *Geometry {
	if vertexHint < 0 {
		vertexHint = 0
	}
	if triangleHint < 0 {
		triangleHint = 0
	}
	return &Geometry{
		Vertices:  make([]vec3.T, 0, vertexHint),
		Triangles: make([][3]uint32, 0, triangleHint),
	}
}

// HasColors reports whether a per-vertex color channel is present.
func (g *Geometry) HasColors() bool {
	return len(g.Colors) > 0
}

// Validate checks structural soundness: triangle indices must reference
// existing vertices and a color channel, when present, must cover every
// vertex. It does not judge degeneracy; an empty geometry is structurally
// valid and rejected later by measurement.
func (g *Geometry) Validate() error {
	n := uint32(len(g.Vertices))
	for i, t := range g.Triangles {
		for _, idx := range t {
			if idx >= n {
				return fmt.Errorf("mesh: triangle %d references vertex %d of %d", i, idx, n)
			}
		}
	}
	if len(g.Colors) > 0 && len(g.Colors) != len(g.Vertices) {
		return fmt.Errorf("mesh: color channel covers %d of %d vertices", len(g.Colors), len(g.Vertices))
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty
// geometry yields the inverted MinBox sentinel; callers reject that case
// through degeneracy checks before using the box.
func (g *Geometry) Bounds() vec3.Box {
	box := vec3.MinBox
	for i := range g.Vertices {
		box.Extend(&g.Vertices[i])
	}
	return box
}

// Merge appends other's vertices and triangles, offsetting indices. If either
// side carries colors the merged geometry does too; vertices from the
// uncolored side receive zero-alpha entries so the fallback material applies
// to them alone.
func (g *Geometry) Merge(other *Geometry) {
	if other == nil || len(other.Vertices) == 0 {
		return
	}
	offset := uint32(len(g.Vertices))
	if g.HasColors() || other.HasColors() {
		g.Colors = append(padColors(g.Colors, len(g.Vertices)), padColors(other.Colors, len(other.Vertices))...)
	}
	g.Vertices = append(g.Vertices, other.Vertices...)
	for _, t := range other.Triangles {
		g.Triangles = append(g.Triangles, [3]uint32{t[0] + offset, t[1] + offset, t[2] + offset})
	}
}

// Clone returns a deep copy.
func (g *Geometry) Clone() *Geometry {
	out := &Geometry{
		Vertices:  make([]vec3.T, len(g.Vertices)),
		Triangles: make([][3]uint32, len(g.Triangles)),
	}
	copy(out.Vertices, g.Vertices)
	copy(out.Triangles, g.Triangles)
	if g.Colors != nil {
		out.Colors = make([]color.RGBA, len(g.Colors))
		copy(out.Colors, g.Colors)
	}
	return out
}

// padColors grows a color slice to n entries, filling with zero-alpha values.
func padColors(colors []color.RGBA, n int) []color.RGBA {
	if len(colors) >= n {
		return colors[:n]
	}
	out := make([]color.RGBA, n)
	copy(out, colors)
	return out
}
