// Package views plans the camera poses for a capture run. Planning is a
// pure function of the scene bounding box: same box, same options, same
// poses, down to the bit. Nothing here talks to the renderer.
package views

import (
	"fmt"
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// ViewSpec is one planned camera pose. Position is the eye point relative to
// the scene origin (the composed scene is centered there), Up the camera up
// vector, Zoom a multiplier on the eye distance.
type ViewSpec struct {
	Name     string
	Position vec3.T
	Up       vec3.T
	Zoom     float64
}

// Options tunes the plan. DefaultOptions gives the standard listing set:
// an eight-view ring, four isometric corners, top and bottom.
type Options struct {
	// RingCount is the number of evenly spaced azimuth views. Values below
	// 1 fall back to the default 8; values above 36 are clamped.
	RingCount int
	// RingElevationDeg lifts ring cameras off the equator. Clamped to
	// [-80, 80] so LookAt never degenerates.
	RingElevationDeg float64
	// IncludeIsometric adds the four corner views.
	IncludeIsometric bool
	// IncludeTopBottom adds straight-down and straight-up views.
	IncludeTopBottom bool
	// FOVDeg is the vertical field of view the captures will use; the
	// planner needs it to pick an eye distance that fits the model.
	// Clamped to [10, 120].
	FOVDeg float64
	// Margin scales the fitted distance for breathing room around the
	// model. Clamped to [1, 3].
	Margin float64
}

// DefaultOptions returns the standard listing plan.
func DefaultOptions() Options {
	return Options{
		RingCount:        8,
		RingElevationDeg: 20,
		IncludeIsometric: true,
		IncludeTopBottom: true,
		FOVDeg:           35,
		Margin:           1.15,
	}
}

// ringNames label the canonical eight-view ring. Other ring counts fall back
// to numbered names.
var ringNames = [8]string{
	"front", "front-right", "right", "back-right",
	"back", "back-left", "left", "front-left",
}

// isoElevationDeg is the classic isometric camera elevation,
// atan(1/sqrt(2)), which lines the three visible faces up evenly.
var isoElevationDeg = math.Atan(1/math.Sqrt2) * 180 / math.Pi

// Plan returns the capture poses for a scene bounded by b, hero view first.
// The eye distance fits the bounding sphere into the vertical field of view
// with the configured margin.
func Plan(b vec3.Box, opts Options) []ViewSpec {
	opts = clamp(opts)

	size := vec3.Sub(&b.Max, &b.Min)
	radius := size.Length() / 2
	if radius <= 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
		// Degenerate boxes never reach the renderer; a unit radius keeps
		// the planner total anyway.
		radius = 1
	}
	distance := radius * opts.Margin / math.Sin(radians(opts.FOVDeg)/2)

	specs := make([]ViewSpec, 0, opts.RingCount+6)
	for i := 0; i < opts.RingCount; i++ {
		az := 360 * float64(i) / float64(opts.RingCount)
		name := fmt.Sprintf("ring-%02d", i)
		if opts.RingCount == len(ringNames) {
			name = ringNames[i]
		}
		specs = append(specs, ViewSpec{
			Name:     name,
			Position: orbit(az, opts.RingElevationDeg, distance),
			Up:       vec3.T{0, 1, 0},
			Zoom:     1,
		})
	}
	if opts.IncludeIsometric {
		isoNames := [4]string{"iso-front-right", "iso-back-right", "iso-back-left", "iso-front-left"}
		for i, az := range [4]float64{45, 135, 225, 315} {
			specs = append(specs, ViewSpec{
				Name:     isoNames[i],
				Position: orbit(az, isoElevationDeg, distance),
				Up:       vec3.T{0, 1, 0},
				Zoom:     1,
			})
		}
	}
	if opts.IncludeTopBottom {
		specs = append(specs,
			ViewSpec{Name: "top", Position: vec3.T{0, distance, 0}, Up: vec3.T{0, 0, -1}, Zoom: 1},
			ViewSpec{Name: "bottom", Position: vec3.T{0, -distance, 0}, Up: vec3.T{0, 0, -1}, Zoom: 1},
		)
	}
	return specs
}

// orbit places the eye on a sphere around the origin. Azimuth zero faces
// the model front (+Z), growing toward the model's right (+X); elevation
// lifts toward +Y.
func orbit(azimuthDeg, elevationDeg, distance float64) vec3.T {
	az := radians(azimuthDeg)
	el := radians(elevationDeg)
	return vec3.T{
		distance * math.Cos(el) * math.Sin(az),
		distance * math.Sin(el),
		distance * math.Cos(el) * math.Cos(az),
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func clamp(opts Options) Options {
	if opts.RingCount < 1 {
		opts.RingCount = 8
	}
	if opts.RingCount > 36 {
		opts.RingCount = 36
	}
	if opts.RingElevationDeg < -80 {
		opts.RingElevationDeg = -80
	}
	if opts.RingElevationDeg > 80 {
		opts.RingElevationDeg = 80
	}
	if opts.FOVDeg < 10 {
		opts.FOVDeg = 10
	}
	if opts.FOVDeg > 120 {
		opts.FOVDeg = 120
	}
	if opts.Margin < 1 {
		opts.Margin = 1
	}
	if opts.Margin > 3 {
		opts.Margin = 3
	}
	return opts
}
