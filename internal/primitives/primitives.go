// Package primitives generates procedural reference geometries. They serve
// the `sample` command and the test suites, which build fixtures on the fly
// instead of committing binary model files.
package primitives

import (
	"fmt"
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/mesh"
)

// defaultSphereRings and defaultSphereSlices control sphere mesh resolution.
const defaultSphereRings = 16
const defaultSphereSlices = 16

// defaultCylinderSlices controls cylinder mesh resolution.
const defaultCylinderSlices = 32

// Cube returns a closed axis-aligned cube with the given edge length,
// centered at the origin. Triangles wind counter-clockwise seen from
// outside, so the enclosed volume integrates positive.
func Cube(size float64) *mesh.Geometry {
	return Box(size, size, size)
}

// Box returns a closed axis-aligned box with the given extents, centered at
// the origin. Same winding convention as Cube.
func Box(width, height, depth float64) *mesh.Geometry {
	hx, hy, hz := width/2, height/2, depth/2
	g := mesh.NewGeometry(8, 12)
	g.Vertices = []vec3.T{
		{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
		{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
	}
	g.Triangles = [][3]uint32{
		{4, 5, 6}, {4, 6, 7}, // +Z
		{1, 0, 3}, {1, 3, 2}, // -Z
		{5, 1, 2}, {5, 2, 6}, // +X
		{0, 4, 7}, {0, 7, 3}, // -X
		{3, 7, 6}, {3, 6, 2}, // +Y
		{0, 1, 5}, {0, 5, 4}, // -Y
	}
	return g
}

// Sphere returns a closed UV sphere of the given radius centered at the
// origin. rings and slices control resolution; values below 3 are raised to
// 3. The seam is not duplicated, so the result is manifold.
func Sphere(radius float64, rings, slices int) *mesh.Geometry {
	if rings < 3 {
		rings = 3
	}
	if slices < 3 {
		slices = 3
	}
	g := mesh.NewGeometry((rings-1)*slices+2, 2*(rings-1)*slices)

	// North pole, interior rings top to bottom, south pole.
	g.Vertices = append(g.Vertices, vec3.T{0, radius, 0})
	for i := 1; i < rings; i++ {
		phi := math.Pi * float64(i) / float64(rings)
		y := radius * math.Cos(phi)
		rr := radius * math.Sin(phi)
		for j := 0; j < slices; j++ {
			tau := 2 * math.Pi * float64(j) / float64(slices)
			g.Vertices = append(g.Vertices, vec3.T{rr * math.Cos(tau), y, rr * math.Sin(tau)})
		}
	}
	g.Vertices = append(g.Vertices, vec3.T{0, -radius, 0})

	north := uint32(0)
	south := uint32(len(g.Vertices) - 1)
	ring := func(i, j int) uint32 { // i in 1..rings-1
		return uint32(1 + (i-1)*slices + j%slices)
	}
	for j := 0; j < slices; j++ {
		g.Triangles = append(g.Triangles, [3]uint32{north, ring(1, j+1), ring(1, j)})
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < slices; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			g.Triangles = append(g.Triangles, [3]uint32{a, b, c}, [3]uint32{b, d, c})
		}
	}
	for j := 0; j < slices; j++ {
		g.Triangles = append(g.Triangles, [3]uint32{ring(rings-1, j), ring(rings-1, j+1), south})
	}
	return g
}

// Cylinder returns a closed cylinder of the given radius and height,
// centered at the origin with its axis along Y. slices below 3 are raised to
// 3. The faceted volume is exactly n/2 * r^2 * sin(2*pi/n) * h.
func Cylinder(radius, height float64, slices int) *mesh.Geometry {
	if slices < 3 {
		slices = 3
	}
	hy := height / 2
	g := mesh.NewGeometry(2*slices+2, 4*slices)

	for j := 0; j < slices; j++ {
		tau := 2 * math.Pi * float64(j) / float64(slices)
		g.Vertices = append(g.Vertices, vec3.T{radius * math.Cos(tau), hy, radius * math.Sin(tau)})
	}
	for j := 0; j < slices; j++ {
		tau := 2 * math.Pi * float64(j) / float64(slices)
		g.Vertices = append(g.Vertices, vec3.T{radius * math.Cos(tau), -hy, radius * math.Sin(tau)})
	}
	topCenter := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices, vec3.T{0, hy, 0})
	botCenter := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices, vec3.T{0, -hy, 0})

	top := func(j int) uint32 { return uint32(j % slices) }
	bot := func(j int) uint32 { return uint32(slices + j%slices) }
	for j := 0; j < slices; j++ {
		g.Triangles = append(g.Triangles,
			[3]uint32{top(j), top(j + 1), bot(j)},
			[3]uint32{top(j + 1), bot(j + 1), bot(j)},
			[3]uint32{topCenter, top(j + 1), top(j)},
			[3]uint32{botCenter, bot(j), bot(j + 1)},
		)
	}
	return g
}

// Generate builds a named primitive sized to fit a bounding cube of sizeMM
// millimeters. Known kinds are "cube", "sphere", and "cylinder"; anything
// else is an error so callers can report the supported set.
func Generate(kind string, sizeMM float64) (*mesh.Geometry, error) {
	if sizeMM <= 0 {
		return nil, fmt.Errorf("primitives: size must be positive, got %v", sizeMM)
	}
	switch kind {
	case "cube":
		return Cube(sizeMM), nil
	case "sphere":
		return Sphere(sizeMM/2, defaultSphereRings, defaultSphereSlices), nil
	case "cylinder":
		return Cylinder(sizeMM/2, sizeMM, defaultCylinderSlices), nil
	default:
		return nil, fmt.Errorf("primitives: unknown kind %q (want cube, sphere, or cylinder)", kind)
	}
}
