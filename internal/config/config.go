package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxeledit.ai/internal/editor/color"
	"voxeledit.ai/internal/editor/input"
)

type GesturePolicy string

const (
	// GesturePolicyIgnore drops a paint start while a commit is still pending.
	GesturePolicyIgnore GesturePolicy = "ignore"
	// GesturePolicyRace lets a new gesture start while the previous commit runs.
	GesturePolicyRace GesturePolicy = "race"
)

type Config struct {
	Listen     string `yaml:"listen"`
	DataDir    string `yaml:"data_dir"`
	CatalogDir string `yaml:"catalog_dir"`
	RedisAddr  string `yaml:"redis_addr"`
	DisableDB  bool   `yaml:"disable_db"`

	World  World  `yaml:"world"`
	Tool   Tool   `yaml:"tool"`
	Mirror Mirror `yaml:"mirror"`
}

// Mirror uploads closed audit and gesture segments to S3-compatible storage.
// It is off while Endpoint is empty. Credentials come from the environment.
type Mirror struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Workers  int    `yaml:"workers"`
}

func (m Mirror) Enabled() bool { return m.Endpoint != "" }

type World struct {
	Height      int `yaml:"height"`
	BoundaryR   int `yaml:"boundary_r"`
	GroundLevel int `yaml:"ground_level"`
}

type Tool struct {
	DefaultItem   string        `yaml:"default_item"`
	DefaultAmount int           `yaml:"default_amount"`
	AmountMin     int           `yaml:"amount_min"`
	AmountMax     int           `yaml:"amount_max"`
	KeyBinding    string        `yaml:"key_binding"`
	PaneWidth     int           `yaml:"pane_width"`
	CursorColor   string        `yaml:"cursor_color"`
	PreviewFill   string        `yaml:"preview_fill"`
	PreviewBorder string        `yaml:"preview_border"`
	BulkChunkSize int           `yaml:"bulk_chunk_size"`
	GesturePolicy GesturePolicy `yaml:"gesture_policy"`

	// RepaintSameBlock clears the debounce cache at every paint start.
	RepaintSameBlock bool `yaml:"repaint_same_block"`
}

func Defaults() Config {
	return Config{
		Listen:     ":8090",
		DataDir:    "./data",
		CatalogDir: "./configs",
		World: World{
			Height:      320,
			BoundaryR:   4000,
			GroundLevel: 64,
		},
		Tool: Tool{
			DefaultItem:   "minecraft:diamond_sword",
			DefaultAmount: 1,
			AmountMin:     1,
			AmountMax:     64,
			KeyBinding:    "Ctrl+I",
			PaneWidth:     40,
			CursorColor:   "#00ff00ff",
			PreviewFill:   "#00ff001a",
			PreviewBorder: "#00ff0033",
			BulkChunkSize: 256,
			GesturePolicy: GesturePolicyIgnore,
		},
		Mirror: Mirror{Workers: 2},
	}
}

// Load reads a YAML file over Defaults. A missing file yields Defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.World.Height <= 0 {
		return fmt.Errorf("world.height must be > 0")
	}
	if c.World.GroundLevel < 1 || c.World.GroundLevel >= c.World.Height {
		return fmt.Errorf("world.ground_level must be in [1,%d)", c.World.Height)
	}
	if c.World.BoundaryR < 0 {
		return fmt.Errorf("world.boundary_r must be >= 0")
	}
	t := c.Tool
	if t.DefaultItem == "" {
		return fmt.Errorf("tool.default_item is required")
	}
	if t.AmountMin < 1 || t.AmountMax < t.AmountMin {
		return fmt.Errorf("tool.amount_min/amount_max: bad range [%d,%d]", t.AmountMin, t.AmountMax)
	}
	if t.PaneWidth <= 0 {
		return fmt.Errorf("tool.pane_width must be > 0")
	}
	if t.BulkChunkSize <= 0 {
		return fmt.Errorf("tool.bulk_chunk_size must be > 0")
	}
	if _, err := input.ParseKey(t.KeyBinding); err != nil {
		return fmt.Errorf("tool.key_binding: %w", err)
	}
	for name, v := range map[string]string{
		"cursor_color":   t.CursorColor,
		"preview_fill":   t.PreviewFill,
		"preview_border": t.PreviewBorder,
	} {
		if _, err := color.ParseHex(v); err != nil {
			return fmt.Errorf("tool.%s: %w", name, err)
		}
	}
	if c.Mirror.Enabled() && c.Mirror.Bucket == "" {
		return fmt.Errorf("mirror.bucket is required when mirror.endpoint is set")
	}
	if c.Mirror.Workers < 0 {
		return fmt.Errorf("mirror.workers must be >= 0")
	}
	switch t.GesturePolicy {
	case GesturePolicyIgnore, GesturePolicyRace:
	default:
		return fmt.Errorf("tool.gesture_policy: unknown policy %q", t.GesturePolicy)
	}
	return nil
}
