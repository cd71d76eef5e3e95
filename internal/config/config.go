// Package config loads the run configuration: embedded defaults overlaid by
// an optional YAML file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"blockevo.ai/internal/sim/voxel"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Seed        int64 `yaml:"seed" json:"seed"`
	Generations int   `yaml:"generations" json:"generations"`

	World     WorldConfig     `yaml:"world" json:"world"`
	Resources ResourcesConfig `yaml:"resources" json:"resources"`
	Rates     RatesConfig     `yaml:"rates" json:"rates"`
	Lineage   LineageConfig   `yaml:"lineage" json:"lineage"`
	Quirks    QuirksConfig    `yaml:"quirks" json:"quirks"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Sink      SinkConfig      `yaml:"sink" json:"sink"`

	DataDir   string `yaml:"data_dir" json:"data_dir"`
	DisableDB bool   `yaml:"disable_db" json:"disable_db"`
}

type WorldConfig struct {
	Start        [3]int  `yaml:"start" json:"start"`
	End          [3]int  `yaml:"end" json:"end"`
	VerticalBand [2]int  `yaml:"vertical_band" json:"vertical_band"`
	Root         *[3]int `yaml:"root,omitempty" json:"root,omitempty"`
}

type ResourcesConfig struct {
	Richness              int `yaml:"richness" json:"richness"`
	SurvivalThreshold     int `yaml:"survival_threshold" json:"survival_threshold"`
	GrowPerGeneration     int `yaml:"grow_per_generation" json:"grow_per_generation"`
	ResetEveryGenerations int `yaml:"reset_every_generations" json:"reset_every_generations"`
}

type RatesConfig struct {
	Reproduction  float64 `yaml:"reproduction" json:"reproduction"`
	Recombination float64 `yaml:"recombination" json:"recombination"`
	Mutation      float64 `yaml:"mutation" json:"mutation"`
}

type LineageConfig struct {
	CopyOnReproduce bool `yaml:"copy_on_reproduce" json:"copy_on_reproduce"`
}

type QuirksConfig struct {
	CorrectedEastWest       bool `yaml:"corrected_east_west" json:"corrected_east_west"`
	EnforceHorizontalBounds bool `yaml:"enforce_horizontal_bounds" json:"enforce_horizontal_bounds"`
}

type IndexConfig struct {
	Kind       string `yaml:"kind" json:"kind"`
	BucketSize int    `yaml:"bucket_size" json:"bucket_size"`
}

const (
	SinkMemory    = "memory"
	SinkWebsocket = "ws"
)

type SinkConfig struct {
	Kind           string `yaml:"kind" json:"kind"`
	URL            string `yaml:"url" json:"url"`
	RetryAttempts  int    `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
	TimeoutMs      int    `yaml:"timeout_ms" json:"timeout_ms"`
}

func (s SinkConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMs) * time.Millisecond
}

func (s SinkConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Defaults returns the embedded configuration.
func Defaults() Config {
	var c Config
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	c.Normalize()
	return c
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(raw)
}

// Parse overlays raw YAML on the defaults, then normalizes and validates.
func Parse(raw []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Box is the world section the simulation owns.
func (c Config) Box() voxel.Box {
	return voxel.NewBox(voxel.FromArray(c.World.Start), voxel.FromArray(c.World.End))
}

// RootCoord is where the first entity is placed: the configured root, or the
// horizontal center of the box on its lowest layer.
func (c Config) RootCoord() voxel.Vec3i {
	if c.World.Root != nil {
		return voxel.FromArray(*c.World.Root)
	}
	b := c.Box()
	return voxel.Vec3i{
		X: b.Min.X + (b.Max.X-b.Min.X)/2,
		Y: b.Min.Y,
		Z: b.Min.Z + (b.Max.Z-b.Min.Z)/2,
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	b := voxel.NewBox(voxel.FromArray(c.World.Start), voxel.FromArray(c.World.End))
	c.World.Start, c.World.End = b.Min.ToArray(), b.Max.ToArray()
	if c.World.VerticalBand == ([2]int{}) {
		c.World.VerticalBand = [2]int{b.Min.Y, b.Max.Y}
	}
	if c.World.VerticalBand[0] > c.World.VerticalBand[1] {
		c.World.VerticalBand[0], c.World.VerticalBand[1] = c.World.VerticalBand[1], c.World.VerticalBand[0]
	}
	c.Index.Kind = strings.ToLower(strings.TrimSpace(c.Index.Kind))
	if c.Index.Kind == "" {
		c.Index.Kind = "linear"
	}
	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))
	if c.Sink.Kind == "" {
		c.Sink.Kind = SinkMemory
	}
	if c.Sink.RetryAttempts <= 0 {
		c.Sink.RetryAttempts = 1
	}
}

func (c Config) Validate() error {
	if c.Generations < 0 {
		return fmt.Errorf("generations must be >= 0")
	}
	if c.Resources.Richness < 0 {
		return fmt.Errorf("resources.richness must be >= 0")
	}
	if c.Resources.SurvivalThreshold < 0 {
		return fmt.Errorf("resources.survival_threshold must be >= 0")
	}
	if c.Resources.ResetEveryGenerations < 0 {
		return fmt.Errorf("resources.reset_every_generations must be >= 0")
	}
	for name, r := range map[string]float64{
		"reproduction":  c.Rates.Reproduction,
		"recombination": c.Rates.Recombination,
		"mutation":      c.Rates.Mutation,
	} {
		if r < 0 || r > 1 {
			return fmt.Errorf("rates.%s must be in [0,1], got %v", name, r)
		}
	}
	box := c.Box()
	if _, ok := box.VolumeChecked(); !ok {
		return fmt.Errorf("world box %v..%v too large", box.Min, box.Max)
	}
	if c.World.VerticalBand[0] < box.Min.Y || c.World.VerticalBand[1] > box.Max.Y {
		return fmt.Errorf("world.vertical_band %v must lie within the box Y range [%d,%d]", c.World.VerticalBand, box.Min.Y, box.Max.Y)
	}
	if root := c.RootCoord(); !box.Contains(root) {
		return fmt.Errorf("world.root %v outside the world box", root)
	}
	switch c.Index.Kind {
	case "linear":
	case "grid":
		if c.Index.BucketSize <= 0 {
			return fmt.Errorf("index.bucket_size must be > 0 for the grid index")
		}
	default:
		return fmt.Errorf("unknown index.kind %q", c.Index.Kind)
	}
	switch c.Sink.Kind {
	case SinkMemory:
	case SinkWebsocket:
		if strings.TrimSpace(c.Sink.URL) == "" {
			return fmt.Errorf("sink.url must not be empty for the ws sink")
		}
	default:
		return fmt.Errorf("unknown sink.kind %q", c.Sink.Kind)
	}
	if c.Sink.RetryBackoffMs < 0 || c.Sink.TimeoutMs < 0 {
		return fmt.Errorf("sink retry_backoff_ms and timeout_ms must be >= 0")
	}
	return nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
