package sph

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds everything that is fixed for the lifetime of a run.
type Config struct {
	Particles int       `yaml:"particles"`
	GroupSize int       `yaml:"group_size"`
	Columns   int       `yaml:"columns"`
	Radius    float32   `yaml:"radius"`
	Origin    []float32 `yaml:"origin"`

	Window WindowConfig `yaml:"window"`
	Shader ShaderConfig `yaml:"shaders"`

	// AcquireTimeout bounds the wait for a presentable image.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	// MaxSubmitFailures is how many consecutive failed submissions are
	// tolerated before the loop gives up.
	MaxSubmitFailures int `yaml:"max_submit_failures"`
	// ReportAfter is when the one-off frame count report is logged. Zero
	// disables it.
	ReportAfter time.Duration `yaml:"report_after"`
	// ExplicitComputeDependency makes the draw wait on a semaphore signalled
	// by the simulation step. When false, steps are submitted on the graphics
	// queue and ordered by submission order.
	ExplicitComputeDependency bool `yaml:"explicit_compute_dependency"`

	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// ShaderConfig names the SPIR-V files, relative to Dir unless absolute.
type ShaderConfig struct {
	Dir             string `yaml:"dir"`
	DensityPressure string `yaml:"density_pressure"`
	Force           string `yaml:"force"`
	Integrate       string `yaml:"integrate"`
	Vertex          string `yaml:"vertex"`
	Fragment        string `yaml:"fragment"`
}

// DefaultConfig is 20000 particles on a 125 column grid in a 1000x1000 window.
func DefaultConfig() Config {
	g := DefaultGrid()
	return Config{
		Particles: 20000,
		GroupSize: 128,
		Columns:   g.Columns,
		Radius:    g.Radius,
		Origin:    []float32{g.Origin.X(), g.Origin.Y()},
		Window: WindowConfig{
			Width:  1000,
			Height: 1000,
			Title:  "SPH (Vulkan)",
		},
		Shader: ShaderConfig{
			Dir:             "shaders",
			DensityPressure: "compute_density_pressure.spv",
			Force:           "compute_force.spv",
			Integrate:       "integrate.spv",
			Vertex:          "vertex.spv",
			Fragment:        "fragment.spv",
		},
		AcquireTimeout:            time.Second,
		MaxSubmitFailures:         3,
		ReportAfter:               20 * time.Second,
		ExplicitComputeDependency: true,
		LogLevel:                  "info",
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the pipeline cannot be built from.
func (c Config) Validate() error {
	switch {
	case c.Particles <= 0:
		return errors.Errorf("particles must be positive, got %d", c.Particles)
	case c.GroupSize <= 0:
		return errors.Errorf("group_size must be positive, got %d", c.GroupSize)
	case c.Columns <= 0:
		return errors.Errorf("columns must be positive, got %d", c.Columns)
	case c.Radius <= 0:
		return errors.Errorf("radius must be positive, got %v", c.Radius)
	case len(c.Origin) != 2:
		return errors.Errorf("origin needs 2 components, got %d", len(c.Origin))
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	case c.AcquireTimeout <= 0:
		return errors.Errorf("acquire_timeout must be positive, got %s", c.AcquireTimeout)
	case c.MaxSubmitFailures <= 0:
		return errors.Errorf("max_submit_failures must be positive, got %d", c.MaxSubmitFailures)
	}
	return nil
}

// Grid is the initial placement described by the config.
func (c Config) Grid() Grid {
	return Grid{
		Columns: c.Columns,
		Radius:  c.Radius,
		Origin:  mgl32.Vec2{c.Origin[0], c.Origin[1]},
	}
}

// Layout is the packing of the configured particle count.
func (c Config) Layout() Layout {
	return NewLayout(c.Particles)
}

// Path resolves a shader file name against Dir.
func (s ShaderConfig) Path(file string) string {
	if filepath.IsAbs(file) || s.Dir == "" {
		return file
	}
	return filepath.Join(s.Dir, file)
}
