package decode

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/container"
	"print-studio/internal/mesh"
)

// STLDecoder reads binary and ASCII STL. Stored facet normals are discarded;
// shading normals are recomputed from the winding later.
type STLDecoder struct{}

// stlRecordSize is one binary facet: 12-byte normal, three 12-byte vertices,
// 2-byte attribute count.
const stlRecordSize = 50

// stlHeaderSize is the fixed binary preamble: 80-byte comment plus the
// 4-byte triangle count.
const stlHeaderSize = 84

func (d *STLDecoder) Decode(p *container.Payload) (*Result, error) {
	data := p.Model
	var g *mesh.Geometry
	var err error
	if isASCIISTL(data) {
		g, err = decodeASCIISTL(data)
	} else {
		g, err = decodeBinarySTL(data)
	}
	if err != nil {
		return nil, err
	}
	if verr := g.Validate(); verr != nil {
		return nil, &ParseError{Format: container.FormatSTL, Detail: "inconsistent geometry", Err: verr}
	}
	// STL carries no unit; millimeters is the printing convention.
	return &Result{Geometry: g, SourceUnit: "millimeter"}, nil
}

// isASCIISTL distinguishes the two encodings. Binary files routinely start
// with "solid" too, so a solid prefix only decides ASCII when the byte
// length does not match the binary layout exactly.
func isASCIISTL(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("solid")) {
		return false
	}
	if len(data) >= stlHeaderSize {
		count := binary.LittleEndian.Uint32(data[80:stlHeaderSize])
		if uint64(len(data)) == stlHeaderSize+uint64(count)*stlRecordSize {
			return false
		}
	}
	return true
}

func decodeBinarySTL(data []byte) (*mesh.Geometry, error) {
	if len(data) < stlHeaderSize {
		return nil, &ParseError{Format: container.FormatSTL,
			Detail: fmt.Sprintf("%d bytes is shorter than the binary header", len(data))}
	}
	count := binary.LittleEndian.Uint32(data[80:stlHeaderSize])
	need := uint64(stlHeaderSize) + uint64(count)*stlRecordSize
	if uint64(len(data)) < need {
		return nil, &ParseError{Format: container.FormatSTL,
			Detail: fmt.Sprintf("header promises %d triangles but payload holds %d bytes of %d", count, len(data), need)}
	}

	g := mesh.NewGeometry(int(count)/2, int(count))
	dedup := make(map[vec3.T]uint32, count/2)
	rec := data[stlHeaderSize:]
	for i := uint64(0); i < uint64(count); i++ {
		base := i * stlRecordSize
		var tri [3]uint32
		for c := 0; c < 3; c++ {
			// Skip the 12-byte stored normal at the record start.
			off := base + 12 + uint64(c)*12
			v := vec3.T{
				float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))),
				float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:]))),
				float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:]))),
			}
			tri[c] = internVertex(g, dedup, v)
		}
		g.Triangles = append(g.Triangles, tri)
	}
	return g, nil
}

// decodeASCIISTL reads the facet/vertex grammar. It tolerates header noise
// but insists on exactly three vertices per facet.
func decodeASCIISTL(data []byte) (*mesh.Geometry, error) {
	g := mesh.NewGeometry(0, 0)
	dedup := make(map[vec3.T]uint32)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var facet []vec3.T
	inFacet := false
	line := 0
	for sc.Scan() {
		line++
		fields := bytes.Fields(sc.Bytes())
		if len(fields) == 0 {
			continue
		}
		switch string(fields[0]) {
		case "facet":
			if inFacet {
				return nil, asciiErr(line, "facet opened inside a facet")
			}
			inFacet = true
			facet = facet[:0]
		case "vertex":
			if !inFacet {
				return nil, asciiErr(line, "vertex outside a facet")
			}
			if len(fields) != 4 {
				return nil, asciiErr(line, "vertex needs three coordinates")
			}
			var v vec3.T
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(string(fields[i+1]), 64)
				if err != nil {
					return nil, asciiErr(line, fmt.Sprintf("bad coordinate %q", fields[i+1]))
				}
				v[i] = f
			}
			facet = append(facet, v)
		case "endfacet":
			if !inFacet {
				return nil, asciiErr(line, "endfacet without facet")
			}
			if len(facet) != 3 {
				return nil, asciiErr(line, fmt.Sprintf("facet holds %d vertices", len(facet)))
			}
			var tri [3]uint32
			for c, v := range facet {
				tri[c] = internVertex(g, dedup, v)
			}
			g.Triangles = append(g.Triangles, tri)
			inFacet = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: container.FormatSTL, Detail: "read ascii stl", Err: err}
	}
	if inFacet {
		return nil, asciiErr(line, "unterminated facet")
	}
	return g, nil
}

func asciiErr(line int, detail string) error {
	return &ParseError{Format: container.FormatSTL, Detail: fmt.Sprintf("line %d: %s", line, detail)}
}

// internVertex returns the index of v, reusing an existing vertex when the
// coordinates match exactly. STL repeats every shared vertex per facet, so
// this typically shrinks the vertex list sixfold.
func internVertex(g *mesh.Geometry, dedup map[vec3.T]uint32, v vec3.T) uint32 {
	if idx, ok := dedup[v]; ok {
		return idx
	}
	idx := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices, v)
	dedup[v] = idx
	return idx
}
