package sph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20000, cfg.Particles)
	assert.Equal(t, 128, cfg.GroupSize)
	assert.Equal(t, DefaultGrid(), cfg.Grid())
	assert.Equal(t, NewLayout(20000), cfg.Layout())
	assert.Equal(t, time.Second, cfg.AcquireTimeout)
	assert.Equal(t, 3, cfg.MaxSubmitFailures)
	assert.Equal(t, 20*time.Second, cfg.ReportAfter)
	assert.True(t, cfg.ExplicitComputeDependency)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
particles: 4096
origin: [0, 0.5]
acquire_timeout: 250ms
window:
  title: test
shaders:
  dir: /opt/sph
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Particles)
	assert.Equal(t, mgl32.Vec2{0, 0.5}, cfg.Grid().Origin)
	assert.Equal(t, 250*time.Millisecond, cfg.AcquireTimeout)
	assert.Equal(t, "test", cfg.Window.Title)
	assert.Equal(t, 1000, cfg.Window.Width)
	assert.Equal(t, 128, cfg.GroupSize)
	assert.Equal(t, "/opt/sph/integrate.spv", cfg.Shader.Path(cfg.Shader.Integrate))
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	for _, body := range []string{
		"particles: 0",
		"group_size: -1",
		"radius: 0",
		"origin: [1]",
		"max_submit_failures: 0",
		"window: {width: 0}",
	} {
		_, err := LoadConfig(writeConfig(t, body))
		assert.Error(t, err, body)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShaderPath(t *testing.T) {
	s := ShaderConfig{Dir: "shaders"}
	assert.Equal(t, filepath.Join("shaders", "vertex.spv"), s.Path("vertex.spv"))
	assert.Equal(t, "/abs/vertex.spv", s.Path("/abs/vertex.spv"))
	assert.Equal(t, "vertex.spv", ShaderConfig{}.Path("vertex.spv"))
}
