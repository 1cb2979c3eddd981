package decode

import (
	"regexp"
	"strconv"
	"strings"

	"print-studio/internal/container"
)

// WeightHint is a weight a slicer embedded in the container, in grams.
type WeightHint struct {
	Grams float64
	// Source names the pattern that matched, for provenance logging.
	Source string
}

// Slicer weight conventions, most specific first. Attribute order inside a
// metadata element varies by writer, so key and value are matched per
// element rather than in one pattern.
var (
	configMetaPattern  = regexp.MustCompile(`(?s)<metadata\s[^>]*>`)
	metaKeyPattern     = regexp.MustCompile(`key="([^"]*)"`)
	metaValuePattern   = regexp.MustCompile(`value="([^"]*)"`)
	commentPattern     = regexp.MustCompile(`(?is)<!--.*?-->`)
	commentWeightValue = regexp.MustCompile(`(?i)weight\s*[:=]\s*([0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)\s*(kg|g)?`)
)

// configWeightKeys are the key attributes slicers use in packaged config
// entries, tried in order.
var configWeightKeys = []string{"weight", "print_weight", "total_weight"}

// modelWeightNames match model metadata name attributes, tried in order.
// The catch-all contains check comes last so the specific names win.
var modelWeightNames = []func(string) bool{
	func(n string) bool { return n == "weight" },
	func(n string) bool { return strings.HasSuffix(n, ":weight") },
	func(n string) bool { return n == "filament used [g]" },
	func(n string) bool { return strings.Contains(n, "weight") },
}

// ScanWeight looks for an embedded weight, in priority order: slicer config
// entries packaged beside the model, then model metadata elements, then XML
// comments in the model itself. The first parseable positive value wins.
func ScanWeight(p *container.Payload, meta []xmlMetadata) *WeightHint {
	for _, key := range configWeightKeys {
		for _, extra := range p.Extras {
			for _, elem := range configMetaPattern.FindAllString(string(extra.Data), -1) {
				km := metaKeyPattern.FindStringSubmatch(elem)
				if km == nil || !strings.EqualFold(km[1], key) {
					continue
				}
				vm := metaValuePattern.FindStringSubmatch(elem)
				if vm == nil {
					continue
				}
				if grams, ok := parseWeightValue(vm[1]); ok {
					return &WeightHint{Grams: grams, Source: "slicer config " + extra.Name}
				}
			}
		}
	}

	for _, match := range modelWeightNames {
		for _, m := range meta {
			if !match(strings.ToLower(strings.TrimSpace(m.Name))) {
				continue
			}
			if grams, ok := parseWeightValue(m.Value); ok {
				return &WeightHint{Grams: grams, Source: `model metadata "` + m.Name + `"`}
			}
		}
	}

	for _, comment := range commentPattern.FindAllString(string(p.Model), -1) {
		m := commentWeightValue.FindStringSubmatch(comment)
		if m == nil {
			continue
		}
		if grams, ok := parseWeightValue(m[1] + " " + m[2]); ok {
			return &WeightHint{Grams: grams, Source: "model comment"}
		}
	}
	return nil
}

// parseWeightValue reads "12.5", "12.5 g", or "0.3kg" into grams. Zero and
// negative values are rejected so a slicer that wrote a placeholder does not
// suppress the volumetric estimate.
func parseWeightValue(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	unit := 1.0
	switch {
	case strings.HasSuffix(s, "kg"):
		unit = 1000
		s = strings.TrimSpace(strings.TrimSuffix(s, "kg"))
	case strings.HasSuffix(s, "g"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "g"))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * unit, true
}
