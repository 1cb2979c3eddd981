// Package config holds the studio pipeline configuration. A YAML file
// overlays the defaults, so every key is optional and an absent file is
// fine.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"print-studio/internal/capture"
	"print-studio/internal/metrology"
	"print-studio/internal/studio"
	"print-studio/internal/views"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "studio.yaml"

// Config is the full pipeline configuration.
type Config struct {
	Render   Render   `yaml:"render"`
	Studio   Studio   `yaml:"studio"`
	Views    Views    `yaml:"views"`
	Material Material `yaml:"material"`
	Log      Log      `yaml:"log"`
}

// Render sizes the capture target.
type Render struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Supersample int     `yaml:"supersample"`
	FOVDeg      float64 `yaml:"fov_deg"`
}

// Studio tunes the composed scene and lighting.
type Studio struct {
	Background       string  `yaml:"background"`
	FallbackColor    string  `yaml:"fallback_color"`
	SmoothAngleDeg   float64 `yaml:"smooth_angle_deg"`
	GroundScale      float64 `yaml:"ground_scale"`
	ShadowStrength   float64 `yaml:"shadow_strength"`
	KeyIntensity     float64 `yaml:"key_intensity"`
	FillIntensity    float64 `yaml:"fill_intensity"`
	RimIntensity     float64 `yaml:"rim_intensity"`
	AmbientIntensity float64 `yaml:"ambient_intensity"`
}

// Views selects which poses the planner emits.
type Views struct {
	RingCount        int     `yaml:"ring_count"`
	RingElevationDeg float64 `yaml:"ring_elevation_deg"`
	Isometric        bool    `yaml:"isometric"`
	TopBottom        bool    `yaml:"top_bottom"`
	Margin           float64 `yaml:"margin"`
}

// Material feeds the volumetric weight estimate.
type Material struct {
	DensityGramsPerCm3 float64 `yaml:"density_g_per_cm3"`
}

// Log configures the zap logger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
	// File, when set, duplicates log output into this path.
	File string `yaml:"file"`
}

// Default returns the configuration the pipeline runs with out of the box.
func Default() Config {
	render := capture.DefaultOptions()
	scene := studio.DefaultOptions()
	plan := views.DefaultOptions()
	material := metrology.DefaultOptions()
	return Config{
		Render: Render{
			Width:       render.Width,
			Height:      render.Height,
			Supersample: render.Supersample,
			FOVDeg:      render.FOVDeg,
		},
		Studio: Studio{
			Background:       scene.BackgroundHex,
			FallbackColor:    scene.FallbackHex,
			SmoothAngleDeg:   scene.SmoothAngleDeg,
			GroundScale:      scene.GroundScale,
			ShadowStrength:   scene.ShadowStrength,
			KeyIntensity:     scene.KeyIntensity,
			FillIntensity:    scene.FillIntensity,
			RimIntensity:     scene.RimIntensity,
			AmbientIntensity: scene.AmbientIntensity,
		},
		Views: Views{
			RingCount:        plan.RingCount,
			RingElevationDeg: plan.RingElevationDeg,
			Isometric:        plan.IncludeIsometric,
			TopBottom:        plan.IncludeTopBottom,
			Margin:           plan.Margin,
		},
		Material: Material{
			DensityGramsPerCm3: material.DensityGramsPerCm3,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path and overlays it on the defaults. A missing file returns
// the defaults with no error; a file that exists but does not parse is an
// error, so typos do not silently fall back.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with. Values that are
// merely unusual are clamped later by the per-package options.
func (c Config) Validate() error {
	if c.Render.Width < 16 || c.Render.Width > 8192 {
		return fmt.Errorf("config: render.width %d outside [16, 8192]", c.Render.Width)
	}
	if c.Render.Height < 16 || c.Render.Height > 8192 {
		return fmt.Errorf("config: render.height %d outside [16, 8192]", c.Render.Height)
	}
	if c.Render.Supersample < 1 || c.Render.Supersample > 4 {
		return fmt.Errorf("config: render.supersample %d outside [1, 4]", c.Render.Supersample)
	}
	if c.Render.FOVDeg <= 0 || c.Render.FOVDeg >= 180 {
		return fmt.Errorf("config: render.fov_deg %g outside (0, 180)", c.Render.FOVDeg)
	}
	if err := validHex("studio.background", c.Studio.Background); err != nil {
		return err
	}
	if err := validHex("studio.fallback_color", c.Studio.FallbackColor); err != nil {
		return err
	}
	if c.Material.DensityGramsPerCm3 <= 0 {
		return fmt.Errorf("config: material.density_g_per_cm3 %g must be positive", c.Material.DensityGramsPerCm3)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q (want debug, info, warn, or error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format %q (want console or json)", c.Log.Format)
	}
	return nil
}

// validHex accepts the #RGB, #RRGGBB, and #RRGGBBAA forms the renderer
// parses.
func validHex(key, value string) error {
	hex := strings.TrimPrefix(value, "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return fmt.Errorf("config: %s %q is not a hex color", key, value)
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("config: %s %q is not a hex color", key, value)
		}
	}
	return nil
}

// CaptureOptions maps the config onto the capture package.
func (c Config) CaptureOptions() capture.Options {
	return capture.Options{
		Width:       c.Render.Width,
		Height:      c.Render.Height,
		Supersample: c.Render.Supersample,
		FOVDeg:      c.Render.FOVDeg,
	}
}

// StudioOptions maps the config onto the scene composer.
func (c Config) StudioOptions() studio.Options {
	return studio.Options{
		BackgroundHex:    c.Studio.Background,
		FallbackHex:      c.Studio.FallbackColor,
		SmoothAngleDeg:   c.Studio.SmoothAngleDeg,
		GroundScale:      c.Studio.GroundScale,
		ShadowStrength:   c.Studio.ShadowStrength,
		KeyIntensity:     c.Studio.KeyIntensity,
		FillIntensity:    c.Studio.FillIntensity,
		RimIntensity:     c.Studio.RimIntensity,
		AmbientIntensity: c.Studio.AmbientIntensity,
	}
}

// ViewOptions maps the config onto the view planner. The planner shares the
// render field of view so its fitted distances match the captures.
func (c Config) ViewOptions() views.Options {
	return views.Options{
		RingCount:        c.Views.RingCount,
		RingElevationDeg: c.Views.RingElevationDeg,
		IncludeIsometric: c.Views.Isometric,
		IncludeTopBottom: c.Views.TopBottom,
		FOVDeg:           c.Render.FOVDeg,
		Margin:           c.Views.Margin,
	}
}

// MetrologyOptions maps the config onto the metrology engine.
func (c Config) MetrologyOptions() metrology.Options {
	return metrology.Options{
		DensityGramsPerCm3: c.Material.DensityGramsPerCm3,
	}
}
