package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	"deedles.dev/wlcore/internal/config"
	"deedles.dev/wlcore/internal/headless"
	"deedles.dev/wlcore/internal/logger"
	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/xdg"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	socketName   string
	snapshotPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compositor",
	Long: `Run the compositor until it is interrupted. Clients can connect by
setting WAYLAND_DISPLAY to the socket name that is logged on startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&socketName, "socket", "s", "", "socket name, overriding server.socket")
	serveCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "write the first output to this PNG file on exit")
}

type compositor struct {
	cfg     *config.Config
	server  *wl.Server
	shell   *xdg.Shell
	desktop *headless.Desktop
	start   time.Time
}

func newCompositor(cfg *config.Config) (*compositor, error) {
	srv, err := wl.ListenAndServe(cfg.Server.Socket)
	if err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	shell := xdg.NewShell(srv)
	shell.Strict = cfg.Shell.Strict

	outputs := make([]*headless.Output, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		o := headless.NewOutput(oc)
		logger.Info("output", "name", o.Name, "geometry", o.Geometry, "scale", o.Scale)
		outputs = append(outputs, o)
	}

	return &compositor{
		cfg:     cfg,
		server:  srv,
		shell:   shell,
		desktop: headless.NewDesktop(shell, outputs),
		start:   time.Now(),
	}, nil
}

func (c *compositor) close() {
	c.desktop.Close()
	c.shell.Close()
	if err := c.server.Close(); err != nil {
		logger.Warn("close server", "err", err)
	}
}

// run owns the server. Every call into it happens on this goroutine.
func (c *compositor) run(ctx context.Context, pings <-chan struct{}) error {
	tick := time.NewTicker(c.cfg.FrameInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-pings:
			c.shell.PingAll()

		case <-tick.C:
			if err := c.server.Flush(); err != nil {
				logger.Warn("client error", "err", err)
			}
			c.desktop.Advance()
			c.server.SendFrameCallbacks(uint32(time.Since(c.start).Milliseconds()))
		}
	}
}

func (c *compositor) snapshot(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	img := c.desktop.Snapshot(c.desktop.Outputs()[0])
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode %v: %w", path, err)
	}
	return file.Close()
}

func ping(ctx context.Context, interval time.Duration, pings chan<- struct{}) error {
	if interval <= 0 {
		return nil
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if socketName != "" {
		cfg.Server.Socket = socketName
	}

	c, err := newCompositor(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	pings := make(chan struct{}, 1)
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.Go(func() error { return c.run(ctx, pings) })
	eg.Go(func() error { return ping(ctx, cfg.Server.PingInterval, pings) })
	if err := eg.Wait(); err != nil {
		return err
	}

	if snapshotPath != "" {
		if err := c.snapshot(snapshotPath); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		logger.Info("wrote snapshot", "path", snapshotPath)
	}
	return nil
}
