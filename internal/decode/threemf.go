package decode

import (
	"encoding/xml"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"print-studio/internal/container"
	"print-studio/internal/mesh"
)

// ThreeMFDecoder reads the model part of a 3MF package: every placed object
// mesh is merged into one geometry, base-material and colorgroup colors land
// in the per-vertex color channel, and coordinates are scaled to
// millimeters.
type ThreeMFDecoder struct{}

// maxComponentDepth bounds component recursion. Real assemblies nest a
// handful of levels; a reference cycle would otherwise recurse forever.
const maxComponentDepth = 8

type xmlModel struct {
	XMLName   xml.Name      `xml:"model"`
	Unit      string        `xml:"unit,attr"`
	Metadata  []xmlMetadata `xml:"metadata"`
	Resources xmlResources  `xml:"resources"`
	Build     xmlBuild      `xml:"build"`
}

type xmlMetadata struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlResources struct {
	BaseMaterials []xmlPalette `xml:"basematerials"`
	ColorGroups   []xmlPalette `xml:"colorgroup"`
	Objects       []xmlObject  `xml:"object"`
}

// xmlPalette covers both property-group shapes that resolve to colors. Bases
// carries basematerials entries, Colors carries colorgroup entries.
type xmlPalette struct {
	ID     string     `xml:"id,attr"`
	Bases  []xmlBase  `xml:"base"`
	Colors []xmlColor `xml:"color"`
}

type xmlBase struct {
	DisplayColor string `xml:"displaycolor,attr"`
}

type xmlColor struct {
	Color string `xml:"color,attr"`
}

type xmlObject struct {
	ID         string         `xml:"id,attr"`
	PID        string         `xml:"pid,attr"`
	PIndex     string         `xml:"pindex,attr"`
	Mesh       *xmlMesh       `xml:"mesh"`
	Components *xmlComponents `xml:"components"`
}

type xmlMesh struct {
	Vertices  []xmlVertex   `xml:"vertices>vertex"`
	Triangles []xmlTriangle `xml:"triangles>triangle"`
}

type xmlVertex struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type xmlTriangle struct {
	V1  int64  `xml:"v1,attr"`
	V2  int64  `xml:"v2,attr"`
	V3  int64  `xml:"v3,attr"`
	PID string `xml:"pid,attr"`
	P1  string `xml:"p1,attr"`
	P2  string `xml:"p2,attr"`
	P3  string `xml:"p3,attr"`
}

type xmlComponents struct {
	Components []xmlComponent `xml:"component"`
}

type xmlComponent struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr"`
}

type xmlBuild struct {
	Items []xmlItem `xml:"item"`
}

type xmlItem struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr"`
}

// unitScaleMM maps the 3MF unit attribute to millimeters. The format
// defaults to millimeter when the attribute is absent.
var unitScaleMM = map[string]float64{
	"":           1,
	"micron":     0.001,
	"millimeter": 1,
	"centimeter": 10,
	"inch":       25.4,
	"foot":       304.8,
	"meter":      1000,
}

func (d *ThreeMFDecoder) Decode(p *container.Payload) (*Result, error) {
	var doc xmlModel
	if err := xml.Unmarshal(p.Model, &doc); err != nil {
		return nil, &ParseError{Format: container.Format3MF, Detail: "malformed model xml", Err: err}
	}
	scale, ok := unitScaleMM[doc.Unit]
	if !ok {
		return nil, &ParseError{Format: container.Format3MF, Detail: fmt.Sprintf("unknown unit %q", doc.Unit)}
	}

	r := &resolver{
		objects:  make(map[string]*xmlObject, len(doc.Resources.Objects)),
		palettes: buildPalettes(&doc.Resources),
		out:      mesh.NewGeometry(0, 0),
	}
	for i := range doc.Resources.Objects {
		obj := &doc.Resources.Objects[i]
		r.objects[obj.ID] = obj
	}

	// Place build items; a model without a build section still renders, so
	// fall back to placing every mesh object once.
	items := doc.Build.Items
	if len(items) == 0 {
		for i := range doc.Resources.Objects {
			items = append(items, xmlItem{ObjectID: doc.Resources.Objects[i].ID})
		}
	}
	for _, item := range items {
		tf, err := parseTransform(item.Transform)
		if err != nil {
			return nil, &ParseError{Format: container.Format3MF,
				Detail: fmt.Sprintf("build item %s: %v", item.ObjectID, err)}
		}
		r.place(item.ObjectID, tf, 0)
	}
	if r.placed == 0 {
		return nil, &ParseError{Format: container.Format3MF,
			Detail: fmt.Sprintf("no decodable mesh (skipped: %s)", strings.Join(r.skipped, ", "))}
	}
	if scale != 1 {
		for i := range r.out.Vertices {
			r.out.Vertices[i].Scale(scale)
		}
	}
	if err := r.out.Validate(); err != nil {
		return nil, &ParseError{Format: container.Format3MF, Detail: "inconsistent merged geometry", Err: err}
	}

	unit := doc.Unit
	if unit == "" {
		unit = "millimeter"
	}
	return &Result{
		Geometry:   r.out,
		SourceUnit: unit,
		WeightHint: ScanWeight(p, doc.Metadata),
		Skipped:    r.skipped,
	}, nil
}

// resolver walks build items and component references, merging placed meshes.
type resolver struct {
	objects  map[string]*xmlObject
	palettes map[string][]color.RGBA
	out      *mesh.Geometry
	placed   int
	skipped  []string
}

func (r *resolver) place(objectID string, tf transform3, depth int) {
	if depth > maxComponentDepth {
		r.skip(objectID, "component nesting too deep")
		return
	}
	obj, ok := r.objects[objectID]
	if !ok {
		r.skip(objectID, "unknown object id")
		return
	}
	if obj.Mesh != nil {
		part, err := r.buildGeometry(obj)
		if err != nil {
			r.skip(objectID, err.Error())
		} else {
			for i := range part.Vertices {
				part.Vertices[i] = tf.apply(part.Vertices[i])
			}
			r.out.Merge(part)
			r.placed++
		}
	}
	if obj.Components != nil {
		for _, c := range obj.Components.Components {
			ctf, err := parseTransform(c.Transform)
			if err != nil {
				r.skip(c.ObjectID, err.Error())
				continue
			}
			// Row-vector convention: the component transform applies first,
			// then the placement of the parent.
			r.place(c.ObjectID, ctf.mul(tf), depth+1)
		}
	}
}

func (r *resolver) skip(objectID, reason string) {
	r.skipped = append(r.skipped, fmt.Sprintf("object %s: %s", objectID, reason))
}

// buildGeometry converts one object mesh, painting per-corner colors into
// per-vertex entries. Corners that disagree about a shared vertex color get
// a duplicated vertex so no color information is lost.
func (r *resolver) buildGeometry(obj *xmlObject) (*mesh.Geometry, error) {
	m := obj.Mesh
	if len(m.Triangles) == 0 {
		return nil, fmt.Errorf("mesh holds no triangles")
	}
	g := mesh.NewGeometry(len(m.Vertices), len(m.Triangles))
	for _, v := range m.Vertices {
		g.Vertices = append(g.Vertices, vec3.T{v.X, v.Y, v.Z})
	}
	n := int64(len(g.Vertices))
	for i, t := range m.Triangles {
		if t.V1 < 0 || t.V1 >= n || t.V2 < 0 || t.V2 >= n || t.V3 < 0 || t.V3 >= n {
			return nil, fmt.Errorf("triangle %d references vertices outside 0..%d", i, n-1)
		}
		g.Triangles = append(g.Triangles, [3]uint32{uint32(t.V1), uint32(t.V2), uint32(t.V3)})
	}

	painter := cornerPainter{g: g, assigned: make([]bool, len(g.Vertices))}
	defaultColor := r.lookupColor(obj.PID, obj.PIndex)
	for i, t := range m.Triangles {
		pid := t.PID
		if pid == "" {
			pid = obj.PID
		}
		if pid == "" {
			continue
		}
		corners := [3]string{t.P1, t.P2, t.P3}
		for c := 0; c < 3; c++ {
			idx := corners[c]
			if idx == "" {
				idx = t.P1
			}
			var col *color.RGBA
			if idx == "" {
				col = defaultColor
			} else {
				col = r.lookupColor(pid, idx)
			}
			if col != nil {
				painter.paint(i, c, *col)
			}
		}
	}
	return g, nil
}

// lookupColor resolves a property group reference to a color, or nil when
// the group or index does not resolve. Unresolvable references degrade to
// the fallback material rather than failing the mesh.
func (r *resolver) lookupColor(pid, pindex string) *color.RGBA {
	if pid == "" {
		return nil
	}
	palette, ok := r.palettes[pid]
	if !ok || len(palette) == 0 {
		return nil
	}
	i := 0
	if pindex != "" {
		v, err := strconv.Atoi(pindex)
		if err != nil || v < 0 || v >= len(palette) {
			return nil
		}
		i = v
	}
	c := palette[i]
	return &c
}

func buildPalettes(res *xmlResources) map[string][]color.RGBA {
	palettes := make(map[string][]color.RGBA)
	for _, bm := range res.BaseMaterials {
		var colors []color.RGBA
		for _, b := range bm.Bases {
			if c, ok := parseHexColor(b.DisplayColor); ok {
				colors = append(colors, c)
			} else {
				// Keep palette indices aligned even when a color is bad.
				colors = append(colors, color.RGBA{})
			}
		}
		palettes[bm.ID] = colors
	}
	for _, cg := range res.ColorGroups {
		var colors []color.RGBA
		for _, c := range cg.Colors {
			if parsed, ok := parseHexColor(c.Color); ok {
				colors = append(colors, parsed)
			} else {
				colors = append(colors, color.RGBA{})
			}
		}
		palettes[cg.ID] = colors
	}
	return palettes
}

// parseHexColor reads #RRGGBB and #RRGGBBAA.
func parseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return color.RGBA{}, false
	}
	c := color.RGBA{A: 0xFF}
	if len(s) == 8 {
		c.A = uint8(v)
		v >>= 8
	}
	c.B = uint8(v)
	c.G = uint8(v >> 8)
	c.R = uint8(v >> 16)
	return c, true
}

// cornerPainter assigns per-corner colors to vertices, duplicating a vertex
// when two corners disagree about its color.
type cornerPainter struct {
	g        *mesh.Geometry
	assigned []bool
}

func (cp *cornerPainter) paint(tri, corner int, c color.RGBA) {
	if cp.g.Colors == nil {
		cp.g.Colors = make([]color.RGBA, len(cp.g.Vertices))
	}
	vi := cp.g.Triangles[tri][corner]
	if !cp.assigned[vi] {
		cp.g.Colors[vi] = c
		cp.assigned[vi] = true
		return
	}
	if cp.g.Colors[vi] == c {
		return
	}
	nv := uint32(len(cp.g.Vertices))
	cp.g.Vertices = append(cp.g.Vertices, cp.g.Vertices[vi])
	cp.g.Colors = append(cp.g.Colors, c)
	cp.assigned = append(cp.assigned, true)
	cp.g.Triangles[tri][corner] = nv
}

// transform3 is the 3MF affine transform: twelve values forming a 4x3
// matrix applied to row vectors, translation in the last three.
type transform3 [12]float64

var identityTransform = transform3{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}

func parseTransform(attr string) (transform3, error) {
	if attr == "" {
		return identityTransform, nil
	}
	fields := strings.Fields(attr)
	if len(fields) != 12 {
		return identityTransform, fmt.Errorf("transform holds %d values, want 12", len(fields))
	}
	var t transform3
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return identityTransform, fmt.Errorf("transform value %q: %w", f, err)
		}
		t[i] = v
	}
	return t, nil
}

func (t transform3) apply(p vec3.T) vec3.T {
	return vec3.T{
		p[0]*t[0] + p[1]*t[3] + p[2]*t[6] + t[9],
		p[0]*t[1] + p[1]*t[4] + p[2]*t[7] + t[10],
		p[0]*t[2] + p[1]*t[5] + p[2]*t[8] + t[11],
	}
}

// mul returns the transform equivalent to applying t first, then u.
func (t transform3) mul(u transform3) transform3 {
	var out transform3
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			v := t[r*3]*u[c] + t[r*3+1]*u[3+c] + t[r*3+2]*u[6+c]
			if r == 3 {
				v += u[9+c]
			}
			out[r*3+c] = v
		}
	}
	return out
}
