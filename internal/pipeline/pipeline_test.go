package pipeline

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"print-studio/internal/capture"
	"print-studio/internal/config"
	"print-studio/internal/container"
	"print-studio/internal/mesh"
	"print-studio/internal/metrology"
	"print-studio/internal/primitives"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Render.Width = 64
	cfg.Render.Height = 64
	cfg.Render.Supersample = 1
	return cfg
}

func stlBytes(t *testing.T, g *mesh.Geometry) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, primitives.WriteBinarySTL(&buf, g, "test"))
	return buf.Bytes()
}

func threeMFBytes(t *testing.T, g *mesh.Geometry, opts primitives.ThreeMFOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, primitives.Write3MF(&buf, g, opts))
	return buf.Bytes()
}

func zipWrap(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestProcessBinarySTLCube(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), nil)
	result, err := p.Process(stlBytes(t, primitives.Cube(20)), "cube.stl")
	require.NoError(t, err)

	require.Len(t, result.Images, 14)
	assert.Equal(t, "front", result.Images[0].Name)
	for _, img := range result.Images {
		assert.NotEmpty(t, img.Data, img.Name)
	}

	require.NotNil(t, result.Dimensions)
	assert.InDelta(t, 20, result.Dimensions.HeightMM, 1e-9)
	assert.InDelta(t, 20, result.Dimensions.WidthMM, 1e-9)
	assert.InDelta(t, 20, result.Dimensions.DepthMM, 1e-9)

	require.NotNil(t, result.WeightKG)
	assert.Equal(t, metrology.ProvenanceVolumetric, result.WeightProvenance)
	// 8000 mm3 of PLA at 1.24 g/cm3.
	assert.InDelta(t, 0.00992, *result.WeightKG, 1e-9)
}

func TestProcess3MFWithEmbeddedWeight(t *testing.T) {
	t.Parallel()

	red := &color.RGBA{R: 200, G: 30, B: 30, A: 255}
	data := threeMFBytes(t, primitives.Cylinder(10, 30, 0), primitives.ThreeMFOptions{
		Title:       "spool holder",
		Color:       red,
		WeightGrams: 42,
	})

	p := New(testConfig(), nil)
	result, err := p.Process(data, "holder.3mf")
	require.NoError(t, err)

	assert.Equal(t, metrology.ProvenanceEmbedded, result.WeightProvenance)
	require.NotNil(t, result.WeightKG)
	assert.InDelta(t, 0.042, *result.WeightKG, 1e-12)
	require.NotNil(t, result.Dimensions)
	assert.InDelta(t, 30, result.Dimensions.HeightMM, 1e-9)
}

func TestProcessZipWrappedSTL(t *testing.T) {
	t.Parallel()

	inner := stlBytes(t, primitives.Sphere(12, 0, 0))
	data := zipWrap(t, "models/ball.stl", inner)

	p := New(testConfig(), nil)
	result, err := p.Process(data, "ball.zip")
	require.NoError(t, err)
	assert.Len(t, result.Images, 14)
	assert.InDelta(t, 24, result.Dimensions.HeightMM, 1e-6)
}

func TestProcessRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), nil)
	_, err := p.Process([]byte("whatever"), "model.obj")
	var formatErr *container.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestProcessRejectsEmptySTL(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), nil)
	_, err := p.Process(stlBytes(t, mesh.NewGeometry(0, 0)), "empty.stl")
	var degenerate *mesh.DegenerateError
	require.ErrorAs(t, err, &degenerate)
}

func TestInspectSkipsRendering(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), nil)
	insp, err := p.Inspect(stlBytes(t, primitives.Cube(10)), "cube.stl")
	require.NoError(t, err)
	assert.True(t, insp.Watertight)
	assert.InDelta(t, 1000, insp.VolumeMM3, 1e-9)
	assert.Equal(t, 8, insp.VertexCount)
	assert.Equal(t, 12, insp.TriangleCount)
	assert.False(t, insp.HasColors)
	assert.Equal(t, "millimeter", insp.SourceUnit)
}

func TestProcessFileAndInspectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cube.stl")
	require.NoError(t, os.WriteFile(path, stlBytes(t, primitives.Cube(10)), 0644))

	p := New(testConfig(), nil)
	result, err := p.ProcessFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Images)

	report, err := p.InspectFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 10, report.Dimensions.HeightMM, 1e-9)

	_, err = p.ProcessFile(filepath.Join(dir, "missing.stl"))
	require.Error(t, err)
}

func TestResultJSONContract(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), nil)
	result, err := p.Process(stlBytes(t, primitives.Cube(10)), "cube.stl")
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"weight_provenance":"volumetric-estimate"`)
	assert.Contains(t, text, `"height_mm":10`)
	assert.Contains(t, text, `"name":"front"`)
}

// No t.Parallel: leak accounting reads the package-global capture ledger.
func TestRepeatedRunsDoNotLeakResources(t *testing.T) {
	base := capture.ActiveResources()
	p := New(testConfig(), nil)
	data := stlBytes(t, primitives.Cube(15))

	for i := 0; i < 3; i++ {
		_, err := p.Process(data, "cube.stl")
		require.NoError(t, err)
		require.Equal(t, base, capture.ActiveResources(), "iteration %d leaked", i)
	}

	// Failing invocations must balance too.
	_, err := p.Process(stlBytes(t, mesh.NewGeometry(0, 0)), "empty.stl")
	require.Error(t, err)
	require.Equal(t, base, capture.ActiveResources())
}
