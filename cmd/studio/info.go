package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"print-studio/internal/metrology"
	"print-studio/internal/pipeline"
)

var flagInfoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <file|url>",
	Short: "Measure a model without rendering it",
	Long: `info runs container resolution, decoding, and metrology only: canonical
print dimensions, enclosed volume, watertightness, and the resolved
weight with its provenance. No render resources are touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&flagInfoJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, name, err := resolveInput(args[0])
	if err != nil {
		return err
	}
	insp, err := pipeline.New(cfg, log).Inspect(data, name)
	if err != nil {
		return err
	}
	if flagInfoJSON {
		return printInfoJSON(args[0], insp)
	}
	printInfo(args[0], insp)
	return nil
}

func printInfo(input string, insp *pipeline.Inspection) {
	fmt.Printf("File: %s\n\n", input)

	fmt.Println("Mesh:")
	fmt.Printf("  Vertices:   %d\n", insp.VertexCount)
	fmt.Printf("  Triangles:  %d\n", insp.TriangleCount)
	fmt.Printf("  Unit:       %s\n", insp.SourceUnit)
	fmt.Printf("  Colors:     %v\n", insp.HasColors)
	fmt.Printf("  Watertight: %v\n\n", insp.Watertight)

	fmt.Println("Dimensions:")
	fmt.Printf("  Width:  %.2f mm\n", insp.Dimensions.WidthMM)
	fmt.Printf("  Height: %.2f mm\n", insp.Dimensions.HeightMM)
	fmt.Printf("  Depth:  %.2f mm\n", insp.Dimensions.DepthMM)
	fmt.Printf("  Volume: %.2f mm3\n\n", insp.VolumeMM3)

	fmt.Println("Weight:")
	if insp.WeightKG != nil {
		fmt.Printf("  %.1f g (%s)\n", *insp.WeightKG*1000, insp.Provenance)
	} else {
		fmt.Printf("  unavailable: %s\n", insp.WeightNote)
	}
}

// infoDoc is the --json shape. It mirrors the sidecar fields render writes,
// plus the mesh facts the table shows.
type infoDoc struct {
	File             string               `json:"file"`
	Vertices         int                  `json:"vertices"`
	Triangles        int                  `json:"triangles"`
	SourceUnit       string               `json:"source_unit"`
	HasColors        bool                 `json:"has_colors"`
	Watertight       bool                 `json:"watertight"`
	Dimensions       metrology.Dimensions `json:"dimensions"`
	VolumeMM3        float64              `json:"volume_mm3"`
	WeightKG         *float64             `json:"weight_kg"`
	WeightProvenance metrology.Provenance `json:"weight_provenance"`
}

func printInfoJSON(input string, insp *pipeline.Inspection) error {
	doc := infoDoc{
		File:             input,
		Vertices:         insp.VertexCount,
		Triangles:        insp.TriangleCount,
		SourceUnit:       insp.SourceUnit,
		HasColors:        insp.HasColors,
		Watertight:       insp.Watertight,
		Dimensions:       insp.Dimensions,
		VolumeMM3:        insp.VolumeMM3,
		WeightKG:         insp.WeightKG,
		WeightProvenance: insp.Provenance,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
