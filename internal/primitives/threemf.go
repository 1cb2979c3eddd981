package primitives

import (
	"archive/zip"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"print-studio/internal/mesh"
)

// ThreeMFOptions controls the optional parts of a generated 3MF package.
type ThreeMFOptions struct {
	// Title is stored as model metadata. Empty omits it.
	Title string
	// Unit is the model unit attribute. Empty means "millimeter".
	Unit string
	// Color, when set, becomes a base material applied to the whole object.
	Color *color.RGBA
	// WeightGrams, when positive, is embedded as a weight metadata entry of
	// the kind slicers leave behind.
	WeightGrams float64
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
 <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
 <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>
`
	relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
 <Relationship Target="/3D/3dmodel.model" Id="rel-1" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>
`
)

// Write3MF writes g as a minimal 3MF package: content types, the package
// relationship pointing at the model part, and the model part itself at the
// conventional 3D/3dmodel.model path.
func Write3MF(w io.Writer, g *mesh.Geometry, opts ThreeMFOptions) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("primitives: 3mf write: %w", err)
	}
	zw := zip.NewWriter(w)

	entries := []struct {
		name string
		body func(io.Writer) error
	}{
		{"[Content_Types].xml", func(ew io.Writer) error {
			_, err := io.WriteString(ew, contentTypesXML)
			return err
		}},
		{"_rels/.rels", func(ew io.Writer) error {
			_, err := io.WriteString(ew, relsXML)
			return err
		}},
		{"3D/3dmodel.model", func(ew io.Writer) error {
			return writeModelXML(ew, g, opts)
		}},
	}
	for _, e := range entries {
		ew, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("primitives: 3mf write %s: %w", e.name, err)
		}
		if err := e.body(ew); err != nil {
			return fmt.Errorf("primitives: 3mf write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("primitives: 3mf write: %w", err)
	}
	return nil
}

func writeModelXML(w io.Writer, g *mesh.Geometry, opts ThreeMFOptions) error {
	unit := opts.Unit
	if unit == "" {
		unit = "millimeter"
	}
	bw := &errWriter{w: w}

	bw.printf(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	bw.printf(`<model unit="%s" xml:lang="en-US" xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02" xmlns:m="http://schemas.microsoft.com/3dmanufacturing/material/2015/02">`+"\n", unit)
	if opts.Title != "" {
		bw.printf(" <metadata name=\"Title\">%s</metadata>\n", opts.Title)
	}
	if opts.WeightGrams > 0 {
		bw.printf(" <metadata name=\"weight\">%s</metadata>\n", formatFloat(opts.WeightGrams))
	}
	bw.printf(" <resources>\n")

	objectAttrs := ""
	if opts.Color != nil {
		c := *opts.Color
		bw.printf("  <basematerials id=\"1\">\n")
		bw.printf("   <base name=\"material\" displaycolor=\"#%02X%02X%02X%02X\"/>\n", c.R, c.G, c.B, c.A)
		bw.printf("  </basematerials>\n")
		objectAttrs = ` pid="1" pindex="0"`
	}

	bw.printf("  <object id=\"2\" type=\"model\"%s>\n", objectAttrs)
	bw.printf("   <mesh>\n    <vertices>\n")
	for _, v := range g.Vertices {
		bw.printf("     <vertex x=\"%s\" y=\"%s\" z=\"%s\"/>\n",
			formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
	}
	bw.printf("    </vertices>\n    <triangles>\n")
	for _, t := range g.Triangles {
		bw.printf("     <triangle v1=\"%d\" v2=\"%d\" v3=\"%d\"/>\n", t[0], t[1], t[2])
	}
	bw.printf("    </triangles>\n   </mesh>\n  </object>\n")
	bw.printf(" </resources>\n")
	bw.printf(" <build>\n  <item objectid=\"2\"/>\n </build>\n")
	bw.printf("</model>\n")
	return bw.err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// errWriter carries the first write error so the XML emitters above stay
// unconditional.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
