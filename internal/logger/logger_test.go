package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New("loud", "console", "")
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := New("info", "xml", "")
	require.Error(t, err)
}

func TestNewWritesToFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "studio.log")
	log, err := New("debug", "json", path)
	require.NoError(t, err)

	log.Info("render finished", zap.String("view", "front"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "render finished")
	assert.Contains(t, string(data), `"view":"front"`)
}

func TestNewDefaultsToConsole(t *testing.T) {
	t.Parallel()

	log, err := New("info", "", "")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
