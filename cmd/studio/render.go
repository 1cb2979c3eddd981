package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"print-studio/internal/metrology"
	"print-studio/internal/pipeline"
)

var (
	flagOut         string
	flagSize        int
	flagViewSet     string
	flagConcurrency int
)

var renderCmd = &cobra.Command{
	Use:   "render <file|url> [more inputs...]",
	Short: "Render listing images and metrology for model files",
	Long: `render runs the full pipeline on each input: locate the mesh inside its
container, decode it, measure it, and capture the planned studio views.
Each input gets its own directory under --out holding the view PNGs and
a metrology.json with dimensions, weight, and weight provenance.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&flagOut, "out", "o", "renders", "output directory")
	renderCmd.Flags().IntVar(&flagSize, "size", 0,
		"square output size in pixels (0 keeps the configured size)")
	renderCmd.Flags().StringVar(&flagViewSet, "views", "",
		"view set: ring (azimuth ring only) or full (ring, isometric, top, bottom)")
	renderCmd.Flags().IntVar(&flagConcurrency, "concurrency", 2,
		"inputs processed in parallel")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	runCfg := cfg
	if flagSize > 0 {
		runCfg.Render.Width = flagSize
		runCfg.Render.Height = flagSize
	}
	switch flagViewSet {
	case "":
	case "ring":
		runCfg.Views.Isometric = false
		runCfg.Views.TopBottom = false
	case "full":
		runCfg.Views.Isometric = true
		runCfg.Views.TopBottom = true
	default:
		return fmt.Errorf("unknown view set %q (want ring or full)", flagViewSet)
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}
	p := pipeline.New(runCfg, log)

	// Every Process call owns its geometry and render context, so parallel
	// inputs cannot cross-talk; the limit only bounds CPU oversubscription.
	var group errgroup.Group
	group.SetLimit(max(flagConcurrency, 1))
	for _, input := range args {
		input := input
		group.Go(func() error {
			return renderOne(p, input)
		})
	}
	return group.Wait()
}

func renderOne(p *pipeline.Pipeline, input string) error {
	data, name, err := resolveInput(input)
	if err != nil {
		return err
	}
	result, err := p.Process(data, name)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	dir := filepath.Join(flagOut, stem(name))
	if err := writeResult(dir, result); err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	fmt.Printf("%s: %d images -> %s\n", input, len(result.Images), dir)
	return nil
}

// sidecar is the metrology.json document written beside the renders. Images
// lists the PNG filenames in capture order.
type sidecar struct {
	Images           []string              `json:"images"`
	Dimensions       *metrology.Dimensions `json:"dimensions"`
	WeightKG         *float64              `json:"weight_kg"`
	WeightProvenance metrology.Provenance  `json:"weight_provenance"`
}

func writeResult(dir string, result *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	doc := sidecar{
		Images:           make([]string, 0, len(result.Images)),
		Dimensions:       result.Dimensions,
		WeightKG:         result.WeightKG,
		WeightProvenance: result.WeightProvenance,
	}
	for _, img := range result.Images {
		name := img.Name + ".png"
		if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0644); err != nil {
			return err
		}
		doc.Images = append(doc.Images, name)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "metrology.json"), append(data, '\n'), 0644)
}

// stem names the per-input output directory after the input file.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
