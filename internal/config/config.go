// Package config loads the wlcore.toml configuration file.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Shell   ShellConfig    `mapstructure:"shell"`
	Outputs []OutputConfig `mapstructure:"outputs"`
	Logging LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	// Socket is the name or path of the listening socket. If it is
	// empty, the first free wayland-N name is used.
	Socket string `mapstructure:"socket"`

	// FrameRate is how many times per second requests are dispatched
	// and frame callbacks are sent.
	FrameRate int `mapstructure:"frame_rate"`

	// PingInterval is the period of xdg_wm_base pings. Zero disables
	// them.
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type ShellConfig struct {
	Strict bool `mapstructure:"strict"`
}

type OutputConfig struct {
	Name        string `mapstructure:"name"`
	X           int    `mapstructure:"x"`
	Y           int    `mapstructure:"y"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	Scale       int    `mapstructure:"scale"`
	ReservedTop int    `mapstructure:"reserved_top"`
}

// Geometry returns the area of the global compositor space covered by
// the output.
func (o OutputConfig) Geometry() image.Rectangle {
	return image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height)
}

// AvailableGeometry is Geometry minus the reserved area at the top.
func (o OutputConfig) AvailableGeometry() image.Rectangle {
	r := o.Geometry()
	r.Min.Y = min(r.Min.Y+o.ReservedTop, r.Max.Y)
	return r
}

type LoggingConfig struct {
	// Level overrides LOG_LEVEL if it isn't empty.
	Level string `mapstructure:"level"`
}

var DefaultConfig = Config{
	Server: ServerConfig{
		FrameRate:    60,
		PingInterval: 10 * time.Second,
	},
	Shell: ShellConfig{
		Strict: true,
	},
	Outputs: []OutputConfig{
		{Name: "HEADLESS-1", Width: 1920, Height: 1080, Scale: 1},
	},
}

// Load reads the configuration from path. If path is empty, wlcore.toml
// is searched for in the user's configuration directories and in the
// current directory, and a missing file results in the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("wlcore")
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, dir := range searchPath() {
			v.AddConfigPath(dir)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if (path != "") || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.socket", DefaultConfig.Server.Socket)
	v.SetDefault("server.frame_rate", DefaultConfig.Server.FrameRate)
	v.SetDefault("server.ping_interval", DefaultConfig.Server.PingInterval)
	v.SetDefault("shell.strict", DefaultConfig.Shell.Strict)
	v.SetDefault("logging.level", DefaultConfig.Logging.Level)

	outputs := make([]map[string]any, 0, len(DefaultConfig.Outputs))
	for _, o := range DefaultConfig.Outputs {
		outputs = append(outputs, map[string]any{
			"name":         o.Name,
			"x":            o.X,
			"y":            o.Y,
			"width":        o.Width,
			"height":       o.Height,
			"scale":        o.Scale,
			"reserved_top": o.ReservedTop,
		})
	}
	v.SetDefault("outputs", outputs)
}

func searchPath() []string {
	var dirs []string
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		dirs = append(dirs, filepath.Join(dir, "wlcore"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "wlcore"))
	}
	return append(dirs, ".")
}

// Validate checks that the configuration can be used to start a
// server.
func (cfg *Config) Validate() error {
	if cfg.Server.FrameRate <= 0 {
		return fmt.Errorf("server.frame_rate must be positive, got %v", cfg.Server.FrameRate)
	}
	if cfg.Server.PingInterval < 0 {
		return fmt.Errorf("server.ping_interval must not be negative, got %v", cfg.Server.PingInterval)
	}

	if len(cfg.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}

	names := make(map[string]struct{}, len(cfg.Outputs))
	for i, o := range cfg.Outputs {
		if o.Name == "" {
			return fmt.Errorf("output %v has no name", i)
		}
		if _, ok := names[o.Name]; ok {
			return fmt.Errorf("duplicate output %q", o.Name)
		}
		names[o.Name] = struct{}{}

		if (o.Width <= 0) || (o.Height <= 0) {
			return fmt.Errorf("output %q must have a positive size, got %vx%v", o.Name, o.Width, o.Height)
		}
		if o.Scale < 1 {
			return fmt.Errorf("output %q must have a scale of at least 1, got %v", o.Name, o.Scale)
		}
		if (o.ReservedTop < 0) || (o.ReservedTop >= o.Height) {
			return fmt.Errorf("output %q: reserved_top %v does not fit in height %v", o.Name, o.ReservedTop, o.Height)
		}
	}

	return nil
}

// FrameInterval is the time between two ticks of the server loop.
func (cfg *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(cfg.Server.FrameRate)
}
