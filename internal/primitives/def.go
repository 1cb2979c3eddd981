package primitives

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Def is the YAML definition for a generated sample model. Kind drives the
// generator; the rest feed the 3MF writer when the output format supports
// them.
type Def struct {
	Kind        string  `yaml:"kind"`
	SizeMM      float64 `yaml:"size_mm,omitempty"`
	Color       string  `yaml:"color,omitempty"`
	WeightGrams float64 `yaml:"weight_g,omitempty"`
}

// defaultSampleSizeMM is used when a definition omits size_mm.
const defaultSampleSizeMM = 40.0

// LoadDef reads a sample definition from a YAML file and fills defaults.
func LoadDef(path string) (*Def, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("primitives: read def: %w", err)
	}
	var d Def
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("primitives: parse def: %w", err)
	}
	if d.Kind == "" {
		return nil, fmt.Errorf("primitives: def %s: kind is required", path)
	}
	if d.SizeMM <= 0 {
		d.SizeMM = defaultSampleSizeMM
	}
	return &d, nil
}

// RGBA parses the definition's hex color (#RRGGBB or #RRGGBBAA). An empty
// color returns nil, meaning no material is embedded.
func (d *Def) RGBA() (*color.RGBA, error) {
	if d.Color == "" {
		return nil, nil
	}
	hex := strings.TrimPrefix(d.Color, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("primitives: color %q is not #RRGGBB or #RRGGBBAA", d.Color)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("primitives: color %q is not hex", d.Color)
	}
	c := &color.RGBA{A: 255}
	if len(hex) == 8 {
		c.A = uint8(v)
		v >>= 8
	}
	c.B = uint8(v)
	c.G = uint8(v >> 8)
	c.R = uint8(v >> 16)
	return c, nil
}
