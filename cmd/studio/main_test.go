package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"print-studio/internal/config"
)

// Flag and config state is package-level, as cobra leaves it, so these tests
// set it directly and do not run in parallel.

func setTestConfig() {
	cfg = config.Default()
	cfg.Render.Width = 48
	cfg.Render.Height = 48
	cfg.Render.Supersample = 1
	log = zap.NewNop()
}

func TestSampleRenderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "token-holder.3mf")

	flagSampleDef = ""
	flagSampleMM = 20
	flagSampleColor = "#AA3322"
	flagSampleWeight = 9.5
	require.NoError(t, runSample(sampleCmd, []string{"cube", model}))

	setTestConfig()
	flagOut = filepath.Join(dir, "renders")
	flagSize = 0
	flagViewSet = "ring"
	flagConcurrency = 1
	require.NoError(t, runRender(renderCmd, []string{model}))

	outDir := filepath.Join(flagOut, "token-holder")
	raw, err := os.ReadFile(filepath.Join(outDir, "metrology.json"))
	require.NoError(t, err)

	var doc sidecar
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Images, 8)
	assert.Equal(t, "front.png", doc.Images[0])
	require.NotNil(t, doc.Dimensions)
	assert.InDelta(t, 20, doc.Dimensions.HeightMM, 1e-9)
	require.NotNil(t, doc.WeightKG)
	assert.InDelta(t, 0.0095, *doc.WeightKG, 1e-12)
	assert.Equal(t, "embedded-metadata", string(doc.WeightProvenance))

	for _, name := range doc.Images {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, data, name)
	}
}

func TestRunSampleSTLRejectsEmbeds(t *testing.T) {
	dir := t.TempDir()

	flagSampleDef = ""
	flagSampleMM = 10
	flagSampleColor = "#FFFFFF"
	flagSampleWeight = 0
	err := runSample(sampleCmd, []string{"cube", filepath.Join(dir, "cube.stl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3mf")
}

func TestRunSampleFromDef(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "sphere.yaml")
	require.NoError(t, os.WriteFile(def, []byte("kind: sphere\nsize_mm: 12\n"), 0644))

	flagSampleDef = def
	out := filepath.Join(dir, "sphere.stl")
	require.NoError(t, runSample(sampleCmd, []string{out}))
	flagSampleDef = ""

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestSampleDefArgValidation(t *testing.T) {
	flagSampleDef = ""
	_, _, err := sampleDef([]string{"only-one"})
	require.Error(t, err)

	flagSampleDef = "def.yaml"
	_, _, err = sampleDef([]string{"kind", "out.stl"})
	require.Error(t, err)
	flagSampleDef = ""
}

func TestRunRenderRejectsUnknownViewSet(t *testing.T) {
	setTestConfig()
	flagViewSet = "sideways"
	defer func() { flagViewSet = "" }()

	err := runRender(renderCmd, []string{"whatever.stl"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view set")
}

func TestRunRenderReportsMissingInput(t *testing.T) {
	setTestConfig()
	flagViewSet = ""
	flagSize = 0
	flagOut = t.TempDir()
	flagConcurrency = 2

	err := runRender(renderCmd, []string{filepath.Join(t.TempDir(), "missing.stl")})
	require.Error(t, err)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "benchy", stem("benchy.stl"))
	assert.Equal(t, "part.v2", stem("part.v2.3mf"))
	assert.Equal(t, "plain", stem("plain"))
}
