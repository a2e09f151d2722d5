package main

import (
	"deedles.dev/wlcore/internal/config"
	"deedles.dev/wlcore/internal/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wlcore",
	Short: "A headless Wayland compositor",
	Long: `wlcore accepts Wayland clients and manages their xdg_shell windows
on virtual outputs without a display.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to wlcore.toml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Level != "" {
		logger.SetLevel(cfg.Logging.Level)
	}
	return cfg, nil
}
