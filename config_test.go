package riverdriver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
thalwegShp: ./thalwegs.shp
outputDir: ./output
useDemCache: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "./thalwegs.shp", cfg.ThalwegShp)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.True(t, cfg.UseDEMCache)
	assert.Equal(t, "./dems.json", cfg.DemsJSON)
	assert.Equal(t, "./Cache", cfg.CacheDir)
	assert.Equal(t, 1000.0, cfg.ThalwegBuffer)
	assert.Equal(t, 0.4, cfg.SnapToleranceMeters)
	assert.NotNil(t, cfg.Logger)
}

func TestValidateRequiresCoreInputs(t *testing.T) {
	cfg := Config{DemsJSON: "dems.json", OutputDir: "out"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thalwegShp")

	cfg.ThalwegShp = "thalwegs.shp"
	assert.NoError(t, cfg.Validate())
}

func TestFromFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thalwegShp: [unclosed"), 0644))
	_, err := FromFile(path)
	assert.Error(t, err)
}
