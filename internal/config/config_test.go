package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return dir
}

func writeConfig(t *testing.T, path, data string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, *cfg)
	assert.Equal(t, time.Second/60, cfg.FrameInterval())
}

func TestLoadSearchPath(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config", "wlcore", "wlcore.toml"), `
[server]
socket = "wayland-test"
ping_interval = "2s"

[shell]
strict = false

[[outputs]]
name = "LEFT"
width = 1280
height = 720
scale = 1

[[outputs]]
name = "RIGHT"
x = 1280
width = 2560
height = 1440
scale = 2
reserved_top = 30

[logging]
level = "debug"
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "wayland-test", cfg.Server.Socket)
	assert.Equal(t, 60, cfg.Server.FrameRate)
	assert.Equal(t, 2*time.Second, cfg.Server.PingInterval)
	assert.False(t, cfg.Shell.Strict)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, image.Rect(0, 0, 1280, 720), cfg.Outputs[0].Geometry())
	assert.Equal(t, image.Rect(1280, 0, 3840, 1440), cfg.Outputs[1].Geometry())
	assert.Equal(t, image.Rect(1280, 30, 3840, 1440), cfg.Outputs[1].AvailableGeometry())
	assert.Equal(t, 2, cfg.Outputs[1].Scale)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err, "an explicit path has to exist")

	path := filepath.Join(dir, "custom.toml")
	writeConfig(t, path, "[server]\nframe_rate = 30\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Server.FrameRate)
	assert.Equal(t, DefaultConfig.Outputs, cfg.Outputs)

	writeConfig(t, path, "outputs = []\n")
	_, err = Load(path)
	assert.Error(t, err, "an empty output list is rejected")

	writeConfig(t, path, "[server\nframe_rate = 30\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"FrameRate", func(cfg *Config) { cfg.Server.FrameRate = 0 }},
		{"NoOutputs", func(cfg *Config) { cfg.Outputs = nil }},
		{"PingInterval", func(cfg *Config) { cfg.Server.PingInterval = -time.Second }},
		{"NoName", func(cfg *Config) { cfg.Outputs[0].Name = "" }},
		{"DuplicateName", func(cfg *Config) { cfg.Outputs = append(cfg.Outputs, cfg.Outputs[0]) }},
		{"Size", func(cfg *Config) { cfg.Outputs[0].Width = 0 }},
		{"Scale", func(cfg *Config) { cfg.Outputs[0].Scale = 0 }},
		{"ReservedTop", func(cfg *Config) { cfg.Outputs[0].ReservedTop = cfg.Outputs[0].Height }},
	}

	cfg := DefaultConfig
	require.NoError(t, cfg.Validate())

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig
			cfg.Outputs = append([]OutputConfig(nil), DefaultConfig.Outputs...)
			test.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
