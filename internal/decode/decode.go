// Package decode turns container payloads into geometry. Each supported
// format has its own decoder behind a shared capability interface, so the
// pipeline never branches on format beyond asking for the right decoder.
package decode

import (
	"fmt"

	"print-studio/internal/container"
	"print-studio/internal/mesh"
)

// Result is everything a decoder can extract from a payload. Geometry is in
// millimeters regardless of the source unit.
type Result struct {
	Geometry *mesh.Geometry
	// SourceUnit names the unit the file declared before scaling, for logs.
	SourceUnit string
	// WeightHint is the embedded weight left by a slicer, when one exists.
	WeightHint *WeightHint
	// Skipped lists meshes that failed structural validation but were
	// tolerated because a sibling decoded.
	Skipped []string
}

// Decoder reads one container format.
type Decoder interface {
	Decode(p *container.Payload) (*Result, error)
}

// ParseError reports a payload that claims a decodable format but cannot be
// read as one.
type ParseError struct {
	Format container.Format
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Format, e.Detail, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Format, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ForFormat returns the decoder for a container format. Zip never reaches
// here; the container loader unwraps it first.
func ForFormat(f container.Format) (Decoder, error) {
	switch f {
	case container.FormatSTL:
		return &STLDecoder{}, nil
	case container.Format3MF:
		return &ThreeMFDecoder{}, nil
	default:
		return nil, fmt.Errorf("decode: no decoder for container format %q", f)
	}
}
