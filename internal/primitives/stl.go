package primitives

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/mesh"
)

// stlTriangle is one 50-byte binary STL record: facet normal, three
// vertices, and the unused attribute byte count.
type stlTriangle struct {
	N          [3]float32
	V1, V2, V3 [3]float32
	Attr       uint16
}

// WriteBinarySTL writes g as a binary STL stream: an 80-byte header carrying
// name, a little-endian uint32 triangle count, and one 50-byte record per
// triangle. Facet normals are computed from the winding; degenerate
// triangles get a zero normal, which readers recompute anyway.
func WriteBinarySTL(w io.Writer, g *mesh.Geometry, name string) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("primitives: stl write: %w", err)
	}
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("primitives: stl write: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(g.Triangles))); err != nil {
		return fmt.Errorf("primitives: stl write: %w", err)
	}

	for _, t := range g.Triangles {
		v0, v1, v2 := g.Vertices[t[0]], g.Vertices[t[1]], g.Vertices[t[2]]
		n := facetNormal(&v0, &v1, &v2)
		rec := stlTriangle{
			N:  [3]float32{float32(n[0]), float32(n[1]), float32(n[2])},
			V1: [3]float32{float32(v0[0]), float32(v0[1]), float32(v0[2])},
			V2: [3]float32{float32(v1[0]), float32(v1[1]), float32(v1[2])},
			V3: [3]float32{float32(v2[0]), float32(v2[1]), float32(v2[2])},
		}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("primitives: stl write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("primitives: stl write: %w", err)
	}
	return nil
}

// facetNormal returns the unit normal of the triangle winding, or the zero
// vector for degenerate triangles.
func facetNormal(v0, v1, v2 *vec3.T) vec3.T {
	e1 := vec3.Sub(v1, v0)
	e2 := vec3.Sub(v2, v0)
	n := vec3.Cross(&e1, &e2)
	length := n.Length()
	if length == 0 {
		return vec3.T{}
	}
	n.Scale(1 / length)
	return n
}
