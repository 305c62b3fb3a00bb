package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
)

// AnimationCfg selects an animation kind and its knobs for one zone.
type AnimationCfg struct {
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// ZoneCfg describes one strip region.
type ZoneCfg struct {
	ID        string        `yaml:"id"`
	Pixels    int           `yaml:"pixels"`
	Offset    int           `yaml:"offset"`
	Priority  int           `yaml:"priority"`
	Mode      string        `yaml:"mode"` // "static" | "animation"
	Color     string        `yaml:"color,omitempty"`
	Animation *AnimationCfg `yaml:"animation,omitempty"`
}

// SPI holds hardware transport settings.
type SPI struct {
	Port    string `yaml:"port,omitempty"`   // empty picks the first port
	SpeedHz int    `yaml:"speed_hz"`         // e.g. 2400000
}

// Render tunes the scheduler.
type Render struct {
	FPS            int `yaml:"fps"`
	PushTimeoutMs  int `yaml:"push_timeout_ms,omitempty"`
	DriftThreshold int `yaml:"drift_threshold,omitempty"`
}

// Config is the full installation description.
type Config struct {
	Driver      string `yaml:"driver"` // "nrz" | "screen" | "sim"
	Addr        string `yaml:"addr"`
	ColorOrder  string `yaml:"color_order"`
	StripPixels int    `yaml:"strip_pixels"`

	FailureLimit   int `yaml:"failure_limit,omitempty"`
	PriorityLayers int `yaml:"priority_layers,omitempty"`

	Render Render    `yaml:"render"`
	SPI    SPI       `yaml:"spi,omitempty"`
	Zones  []ZoneCfg `yaml:"zones"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) check() error {
	if c.StripPixels <= 0 {
		return fmt.Errorf("strip_pixels must be positive")
	}
	layers := c.PriorityLayers
	if layers <= 0 {
		layers = 4 // matches the supervisor default
	}
	seen := map[string]bool{}
	for _, z := range c.Zones {
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone id %q", z.ID)
		}
		seen[z.ID] = true
		if z.Priority < 0 || z.Priority >= layers {
			return fmt.Errorf("zone %q: priority %d outside [0,%d)", z.ID, z.Priority, layers)
		}
		if z.Mode == "animation" && z.Animation == nil {
			return fmt.Errorf("zone %q: animation mode without animation block", z.ID)
		}
		if z.Color != "" {
			if _, err := ParseColor(z.Color); err != nil {
				return fmt.Errorf("zone %q: %w", z.ID, err)
			}
		}
	}
	return nil
}

// ParseColor reads "#RRGGBB" (leading '#' optional).
func ParseColor(s string) (frame.Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return frame.Color{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return frame.Color{}, fmt.Errorf("bad color %q", s)
	}
	return frame.Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}
