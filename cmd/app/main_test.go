package main

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"industrial-image-preprocessing/internal/core"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSynthesizeCapture(t *testing.T) {
	rect, err := synthesizeCapture(false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	defer rect.Close()

	assert.Equal(t, demoSize, rect.Cols())
	assert.Equal(t, demoSize, rect.Rows())
	assert.Equal(t, 3, rect.Channels())
	inside := rect.GetVecbAt(250, 250)
	assert.Equal(t, []uint8{255, 0, 0}, []uint8{inside[0], inside[1], inside[2]})
	outside := rect.GetVecbAt(10, 10)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{outside[0], outside[1], outside[2]})

	noise, err := synthesizeCapture(true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	defer noise.Close()
	assert.Equal(t, demoSize, noise.Cols())
}

func TestRunDemoWithDumpAndAugment(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		width:    64,
		height:   64,
		enhanced: true,
		augment:  2,
		seed:     3,
		dumpDir:  dir,
		set:      map[string]bool{"width": true, "height": true, "enhanced": true},
	}

	require.NoError(t, run(opts, quietLogger()))

	for _, name := range []string{"processed.png", "augmented_000.png", "augmented_001.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunMissingInput(t *testing.T) {
	opts := options{input: filepath.Join(t.TempDir(), "missing.jpg")}
	assert.Error(t, run(opts, quietLogger()))
}

func TestBuildConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_width: 32\ntarget_height: 16\nenhanced: true\n"), 0o644))

	cfg, err := buildConfig(options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.TargetWidth)
	assert.Equal(t, 16, cfg.TargetHeight)
	assert.True(t, cfg.Enhanced)

	cfg, err = buildConfig(options{configPath: path, grayscale: true, width: 8, set: map[string]bool{"grayscale": true}})
	require.NoError(t, err)
	assert.Equal(t, core.ColorGrayscale, cfg.ColorMode)
	assert.Equal(t, 32, cfg.TargetWidth)
}
