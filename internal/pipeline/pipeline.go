// Package pipeline runs one model from raw upload bytes to listing assets:
// container resolution, mesh decoding, metrology, scene composition, view
// planning, and capture, with every render resource released before the
// call returns.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"print-studio/internal/archive"
	"print-studio/internal/capture"
	"print-studio/internal/config"
	"print-studio/internal/container"
	"print-studio/internal/decode"
	"print-studio/internal/metrology"
	"print-studio/internal/studio"
	"print-studio/internal/views"
)

// Result is what one invocation hands back to the caller. Images transfer
// ownership; nothing in here references pipeline internals.
type Result struct {
	Images           []capture.Image       `json:"images"`
	Dimensions       *metrology.Dimensions `json:"dimensions"`
	WeightKG         *float64              `json:"weight_kg"`
	WeightProvenance metrology.Provenance  `json:"weight_provenance"`
}

// Pipeline is a reusable runner. It holds no per-invocation state, so one
// Pipeline may serve many files, though each Process call runs alone.
type Pipeline struct {
	cfg    config.Config
	log    *zap.Logger
	loader *container.Loader
}

// New builds a pipeline from a validated config. A nil logger disables
// logging.
func New(cfg config.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		log:    log,
		loader: container.NewLoader(archive.Zip{}, log),
	}
}

// Process runs the full pipeline on one uploaded file. The filename only
// supplies the format hint and log context; data is the whole input.
// A missing weight is reported in the result, not as an error.
func (p *Pipeline) Process(data []byte, filename string) (*Result, error) {
	run := p.log.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("file", filepath.Base(filename)),
	)
	start := time.Now()

	decoded, err := p.decodeStage(data, filename, run)
	if err != nil {
		return nil, err
	}

	report, err := p.measureStage(decoded, run)
	if err != nil {
		return nil, err
	}

	scene, err := studio.Compose(decoded.Geometry, p.cfg.StudioOptions())
	if err != nil {
		return nil, err
	}
	session := capture.NewSession(scene, p.cfg.CaptureOptions(), run)
	defer session.Release()

	plan := views.Plan(scene.Bounds, p.cfg.ViewOptions())
	images, err := session.Render(plan)
	if err != nil {
		return nil, err
	}
	run.Info("pipeline finished",
		zap.Int("images", len(images)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Images:           images,
		Dimensions:       &report.Dimensions,
		WeightKG:         report.WeightKG,
		WeightProvenance: report.Provenance,
	}, nil
}

// ProcessFile is the file convenience around Process.
func (p *Pipeline) ProcessFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", path, err)
	}
	return p.Process(data, filepath.Base(path))
}

// Inspection is the measurement report plus the decode facts an operator
// asks about alongside it.
type Inspection struct {
	*metrology.Report
	VertexCount   int
	TriangleCount int
	HasColors     bool
	SourceUnit    string
}

// Inspect stops after metrology: container, decode, and measurement, with
// no scene or render resources touched. The info command runs on this.
func (p *Pipeline) Inspect(data []byte, filename string) (*Inspection, error) {
	run := p.log.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("file", filepath.Base(filename)),
	)
	decoded, err := p.decodeStage(data, filename, run)
	if err != nil {
		return nil, err
	}
	report, err := p.measureStage(decoded, run)
	if err != nil {
		return nil, err
	}
	return &Inspection{
		Report:        report,
		VertexCount:   len(decoded.Geometry.Vertices),
		TriangleCount: len(decoded.Geometry.Triangles),
		HasColors:     decoded.Geometry.HasColors(),
		SourceUnit:    decoded.SourceUnit,
	}, nil
}

// InspectFile is the file convenience around Inspect.
func (p *Pipeline) InspectFile(path string) (*Inspection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", path, err)
	}
	return p.Inspect(data, filepath.Base(path))
}

func (p *Pipeline) decodeStage(data []byte, filename string, run *zap.Logger) (*decode.Result, error) {
	payload, err := p.loader.Load(data, filename)
	if err != nil {
		return nil, err
	}
	run.Info("container resolved",
		zap.String("format", string(payload.Format)),
		zap.Int("model_bytes", len(payload.Model)),
		zap.Int("extras", len(payload.Extras)))

	dec, err := decode.ForFormat(payload.Format)
	if err != nil {
		return nil, err
	}
	decoded, err := dec.Decode(payload)
	if err != nil {
		return nil, err
	}
	run.Info("mesh decoded",
		zap.Int("vertices", len(decoded.Geometry.Vertices)),
		zap.Int("triangles", len(decoded.Geometry.Triangles)),
		zap.Bool("colors", decoded.Geometry.HasColors()))
	if len(decoded.Skipped) > 0 {
		run.Warn("some meshes skipped", zap.Strings("skipped", decoded.Skipped))
	}
	return decoded, nil
}

func (p *Pipeline) measureStage(decoded *decode.Result, run *zap.Logger) (*metrology.Report, error) {
	var embedded *float64
	if decoded.WeightHint != nil {
		embedded = &decoded.WeightHint.Grams
		run.Info("embedded weight found",
			zap.Float64("grams", decoded.WeightHint.Grams),
			zap.String("source", decoded.WeightHint.Source))
	}
	report, err := metrology.Measure(decoded.Geometry, embedded, p.cfg.MetrologyOptions())
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.Float64("height_mm", report.Dimensions.HeightMM),
		zap.Float64("width_mm", report.Dimensions.WidthMM),
		zap.Float64("depth_mm", report.Dimensions.DepthMM),
		zap.Bool("watertight", report.Watertight),
		zap.String("weight_provenance", string(report.Provenance)),
	}
	if report.WeightKG != nil {
		fields = append(fields, zap.Float64("weight_kg", *report.WeightKG))
	} else if report.WeightNote != "" {
		fields = append(fields, zap.String("weight_note", report.WeightNote))
	}
	run.Info("model measured", fields...)
	return report, nil
}
